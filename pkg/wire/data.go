package wire

import "encoding/binary"

// DataHeaderSize is the fixed portion of a Data payload preceding the
// literal bytes: offset(8) + data_len(4).
const DataHeaderSize = 12

// Data is one streamed chunk of file content (spec §3 TeleportData). A
// terminal frame has DataLen == 0 and Offset == the file size.
type Data struct {
	Offset  uint64
	Payload []byte
}

// Serialize encodes a Data payload.
func (d Data) Serialize() []byte {
	out := make([]byte, DataHeaderSize, DataHeaderSize+len(d.Payload))
	binary.LittleEndian.PutUint64(out[0:8], d.Offset)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(d.Payload)))
	return append(out, d.Payload...)
}

// DeserializeData parses a Data payload.
func DeserializeData(input []byte) (Data, error) {
	if len(input) < DataHeaderSize {
		return Data{}, ErrInvalidLength
	}
	offset := binary.LittleEndian.Uint64(input[0:8])
	dataLen := binary.LittleEndian.Uint32(input[8:12])

	payload := input[DataHeaderSize:]
	if uint32(len(payload)) != dataLen {
		return Data{}, ErrInvalidLength
	}

	return Data{Offset: offset, Payload: payload}, nil
}

// IsTerminal reports whether d is the terminal empty-data frame.
func (d Data) IsTerminal() bool { return len(d.Payload) == 0 }
