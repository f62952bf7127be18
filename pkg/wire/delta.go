package wire

import "encoding/binary"

// DeltaMinSize is the smallest a serialized Delta can be: filesize(8) +
// hash(8) + chunk_size(4) + chunk_hash_len(2), with zero chunk hashes.
const DeltaMinSize = 22

// Delta carries the whole-file and per-chunk xxh3 hashes the server
// computes for an existing destination file (spec §3 TeleportDelta,
// §4.4 DeltaHasher). ChunkHash[i] is the hash of the i'th chunk_size-byte
// region of the file.
type Delta struct {
	FileSize  uint64
	Hash      uint64
	ChunkSize uint32
	ChunkHash []uint64
}

// Serialize encodes the delta.
func (d Delta) Serialize() []byte {
	out := make([]byte, 0, DeltaMinSize+len(d.ChunkHash)*8)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], d.FileSize)
	out = append(out, u64[:]...)

	binary.LittleEndian.PutUint64(u64[:], d.Hash)
	out = append(out, u64[:]...)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], d.ChunkSize)
	out = append(out, u32[:]...)

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(d.ChunkHash)))
	out = append(out, u16[:]...)

	for _, h := range d.ChunkHash {
		binary.LittleEndian.PutUint64(u64[:], h)
		out = append(out, u64[:]...)
	}

	return out
}

// DeserializeDelta parses a Delta.
func DeserializeDelta(input []byte) (Delta, error) {
	if len(input) < DeltaMinSize {
		return Delta{}, ErrInvalidLength
	}

	fileSize := binary.LittleEndian.Uint64(input[0:8])
	hash := binary.LittleEndian.Uint64(input[8:16])
	chunkSize := binary.LittleEndian.Uint32(input[16:20])
	chunkHashLen := binary.LittleEndian.Uint16(input[20:22])

	rest := input[22:]
	if len(rest)%8 != 0 || int(chunkHashLen) != len(rest)/8 {
		return Delta{}, ErrInvalidDelta
	}

	hashes := make([]uint64, 0, chunkHashLen)
	for i := 0; i < len(rest); i += 8 {
		hashes = append(hashes, binary.LittleEndian.Uint64(rest[i:i+8]))
	}

	return Delta{
		FileSize:  fileSize,
		Hash:      hash,
		ChunkSize: chunkSize,
		ChunkHash: hashes,
	}, nil
}
