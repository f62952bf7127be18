package wire

import "encoding/binary"

// InitAck is the server's response to an Init (spec §3 TeleportInitAck).
// Features is present iff Status == StatusProceed; Delta is present iff
// Features carries FeatureDelta.
type InitAck struct {
	Status   Status
	Version  Version
	Features *Features
	Delta    *Delta
}

// NewInitAck builds a terminal ack carrying only a status and version.
func NewInitAck(status Status, version Version) InitAck {
	return InitAck{Status: status, Version: version}
}

// Serialize encodes an InitAck payload.
func (a InitAck) Serialize() []byte {
	out := make([]byte, 0, 1+versionSize+4+DeltaMinSize)
	out = append(out, byte(a.Status))
	out = append(out, a.Version.Serialize()...)

	if a.Status != StatusProceed || a.Features == nil {
		return out
	}

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(*a.Features))
	out = append(out, u32[:]...)

	if FeatureDelta.Check(*a.Features) && a.Delta != nil {
		out = append(out, a.Delta.Serialize()...)
	}

	return out
}

// DeserializeInitAck parses an InitAck payload.
func DeserializeInitAck(input []byte) (InitAck, error) {
	const fixedLen = 1 + versionSize
	if len(input) < fixedLen {
		return InitAck{}, ErrInvalidLength
	}

	status, err := ParseStatus(input[0])
	if err != nil {
		return InitAck{}, err
	}

	version, err := DeserializeVersion(input[1:])
	if err != nil {
		return InitAck{}, err
	}

	ack := InitAck{Status: status, Version: version}
	if status != StatusProceed {
		return ack, nil
	}

	rest := input[fixedLen:]
	if len(rest) < 4 {
		return InitAck{}, ErrInvalidLength
	}
	features := Features(binary.LittleEndian.Uint32(rest[0:4]))
	ack.Features = &features

	if !FeatureDelta.Check(features) {
		return ack, nil
	}

	delta, err := DeserializeDelta(rest[4:])
	if err != nil {
		return InitAck{}, err
	}
	ack.Delta = &delta

	return ack, nil
}
