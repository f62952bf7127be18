package wire

import "encoding/binary"

// Init is the client's request to send a file (spec §3 TeleportInit). The
// username/username_len appendix present in one revision of the original
// protocol is deliberately omitted here — see DESIGN.md's Open Question
// log: it had no corresponding status code wired to an InitAck field, and
// partial auth is explicitly left unspecified.
type Init struct {
	Version    Version
	Features   Features
	Chmod      uint32
	FileSize   uint64
	FileName   []byte
}

// Serialize encodes an Init payload (the bytes that go inside a Data
// field of a Header with action Init).
func (i Init) Serialize() []byte {
	out := make([]byte, 0, versionSize+4+4+8+2+len(i.FileName))
	out = append(out, i.Version.Serialize()...)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(i.Features))
	out = append(out, u32[:]...)

	binary.LittleEndian.PutUint32(u32[:], i.Chmod)
	out = append(out, u32[:]...)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], i.FileSize)
	out = append(out, u64[:]...)

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(i.FileName)))
	out = append(out, u16[:]...)

	out = append(out, i.FileName...)
	return out
}

// DeserializeInit parses an Init payload.
func DeserializeInit(input []byte) (Init, error) {
	const fixedLen = versionSize + 4 + 4 + 8 + 2
	if len(input) < fixedLen {
		return Init{}, ErrInvalidLength
	}

	version, err := DeserializeVersion(input)
	if err != nil {
		return Init{}, err
	}

	buf := input[versionSize:]
	features := Features(binary.LittleEndian.Uint32(buf[0:4]))
	chmod := binary.LittleEndian.Uint32(buf[4:8])
	fileSize := binary.LittleEndian.Uint64(buf[8:16])
	nameLen := binary.LittleEndian.Uint16(buf[16:18])

	name := buf[18:]
	if len(name) < int(nameLen) {
		return Init{}, ErrInvalidFileName
	}
	if len(name) != int(nameLen) {
		return Init{}, ErrInvalidLength
	}

	return Init{
		Version:  version,
		Features: features,
		Chmod:    chmod,
		FileSize: fileSize,
		FileName: name,
	}, nil
}
