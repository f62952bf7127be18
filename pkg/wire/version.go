package wire

import (
	"encoding/binary"
	"fmt"
)

// Version is the three 16-bit fields negotiated at Init time (spec §3
// TeleportVersion). Two versions are compatible iff major and minor match
// exactly; patch is informational only.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// versionSize is the fixed wire size of a serialized Version.
const versionSize = 6

// Serialize writes the version as three little-endian u16 fields.
func (v Version) Serialize() []byte {
	out := make([]byte, versionSize)
	binary.LittleEndian.PutUint16(out[0:2], v.Major)
	binary.LittleEndian.PutUint16(out[2:4], v.Minor)
	binary.LittleEndian.PutUint16(out[4:6], v.Patch)
	return out
}

// DeserializeVersion reads a Version from the first 6 bytes of input.
func DeserializeVersion(input []byte) (Version, error) {
	if len(input) < versionSize {
		return Version{}, ErrInvalidLength
	}
	return Version{
		Major: binary.LittleEndian.Uint16(input[0:2]),
		Minor: binary.LittleEndian.Uint16(input[2:4]),
		Patch: binary.LittleEndian.Uint16(input[4:6]),
	}, nil
}

// Compatible reports whether v and other agree on major and minor.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// String implements fmt.Stringer for log lines.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
