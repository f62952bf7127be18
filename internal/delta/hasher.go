// Package delta implements DeltaHasher (spec §4.4): computing the whole-file
// and per-chunk xxh3 digests that let a sender skip chunks that have not
// changed since the destination file was last written.
package delta

import (
	"io"

	"github.com/zeebo/xxh3"

	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

// maxChunkSize is u32::MAX, the clamp applied to the doubling chunk-size
// policy below.
const maxChunkSize = 1<<32 - 1

// ChunkSize picks the chunk size for a file of the given size: start at
// 1024 and double while fileSize/chunkSize exceeds 2048, then clamp to
// maxChunkSize. Both sides of a transfer must compute this identically so
// the client can interpret the server's TeleportDelta without further
// negotiation.
func ChunkSize(fileSize uint64) uint32 {
	chunk := uint64(1024)
	for fileSize/chunk > 2048 {
		chunk *= 2
	}
	if chunk > maxChunkSize {
		return maxChunkSize
	}
	return uint32(chunk)
}

// Hash reads r from its current position to EOF and returns the resulting
// wire.Delta. fileSize must be the file's total size (used to pick the
// chunk size and recorded verbatim in the delta).
func Hash(r io.Reader, fileSize uint64) (wire.Delta, error) {
	chunkSize := ChunkSize(fileSize)
	buf := make([]byte, chunkSize)

	whole := xxh3.New()
	var chunkHash []uint64

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := xxh3.New()
			chunk.Write(buf[:n])
			chunkHash = append(chunkHash, chunk.Sum64())

			whole.Write(buf[:n])
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return wire.Delta{}, err
		}
	}

	return wire.Delta{
		FileSize:  fileSize,
		Hash:      whole.Sum64(),
		ChunkSize: chunkSize,
		ChunkHash: chunkHash,
	}, nil
}

// ChunkHashes hashes r the same way Hash does but returns only the per-chunk
// digests, for a client comparing its local file against a server-supplied
// delta of the given chunk size.
func ChunkHashes(r io.Reader, chunkSize uint32) ([]uint64, error) {
	buf := make([]byte, chunkSize)
	var hashes []uint64

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			h := xxh3.New()
			h.Write(buf[:n])
			hashes = append(hashes, h.Sum64())
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return hashes, nil
}
