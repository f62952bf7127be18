package wire

import "encoding/binary"

// Header is the outer TeleportHeader frame (spec §3): every invariant here
// is enforced by Serialize/Deserialize, not by callers — Data.len() ==
// DataLen always holds for a Header constructed either way, and the
// Encrypted action bit and a non-nil IV always travel together.
type Header struct {
	Action Action
	IV     *[IVSize]byte
	Data   []byte
}

// NewHeader builds a plaintext Header carrying action and data.
func NewHeader(action Action, data []byte) Header {
	return Header{Action: action, Data: data}
}

// Serialize encodes the header to its wire form: magic, data length, action
// (with the Encrypted bit set when IV is set and cleared otherwise), optional
// IV, then data.
func (h Header) Serialize() []byte {
	action := h.Action.Base()
	if h.IV != nil {
		action |= ActionEncrypted
	}

	size := HeaderMinSize + len(h.Data)
	if h.IV != nil {
		size += IVSize
	}
	out := make([]byte, 0, size)

	var hdr [HeaderMinSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], Protocol)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(h.Data)))
	hdr[12] = byte(action)
	out = append(out, hdr[:]...)

	if h.IV != nil {
		out = append(out, h.IV[:]...)
	}
	out = append(out, h.Data...)

	return out
}

// DeserializeHeader parses a complete outer frame (as read by Framer) back
// into a Header.
func DeserializeHeader(input []byte) (Header, error) {
	if len(input) < HeaderMinSize {
		return Header{}, ErrInvalidHeaderRead
	}

	protocol := binary.LittleEndian.Uint64(input[0:8])
	if protocol != Protocol {
		return Header{}, ErrInvalidHeaderRead
	}

	dataLen := binary.LittleEndian.Uint32(input[8:12])
	action := Action(input[12])

	dataOfs := HeaderMinSize
	var iv *[IVSize]byte
	if action.Encrypted() {
		if len(input) < HeaderMinSize+IVSize {
			return Header{}, ErrInvalidIV
		}
		var v [IVSize]byte
		copy(v[:], input[HeaderMinSize:HeaderMinSize+IVSize])
		iv = &v
		dataOfs += IVSize
	}

	data := input[dataOfs:]
	if uint32(len(data)) != dataLen {
		return Header{}, ErrInvalidLength
	}

	return Header{Action: action, IV: iv, Data: data}, nil
}
