package delta

import (
	"bytes"
	"testing"
)

func TestChunkSizeDoublingPolicy(t *testing.T) {
	cases := []struct {
		fileSize uint64
		want     uint32
	}{
		{0, 1024},
		{1024 * 2048, 1024},       // exactly at the boundary: not > 2048
		{1024 * 2049, 2048},       // first size whose quotient exceeds 2048: doubles once
		{2048 * 2048 * 2, 4096},   // doubles again
	}
	for _, c := range cases {
		if got := ChunkSize(c.fileSize); got != c.want {
			t.Errorf("ChunkSize(%d) = %d, want %d", c.fileSize, got, c.want)
		}
	}
}

func TestHashUnchangedFileMatchesLocalChunkHashes(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, 4096+17)

	d, err := Hash(bytes.NewReader(data), uint64(len(data)))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	local, err := ChunkHashes(bytes.NewReader(data), d.ChunkSize)
	if err != nil {
		t.Fatalf("ChunkHashes: %v", err)
	}

	if len(local) != len(d.ChunkHash) {
		t.Fatalf("chunk count mismatch: got %d, want %d", len(local), len(d.ChunkHash))
	}
	for i := range local {
		if local[i] != d.ChunkHash[i] {
			t.Fatalf("chunk %d differs though file is unchanged", i)
		}
	}
}

func TestHashDetectsChangedChunk(t *testing.T) {
	chunkSize := ChunkSize(3000)
	original := bytes.Repeat([]byte{0x11}, int(chunkSize)*3)

	d, err := Hash(bytes.NewReader(original), uint64(len(original)))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	modified := append([]byte(nil), original...)
	modified[chunkSize+5] ^= 0xff // flip a byte inside chunk index 1

	local, err := ChunkHashes(bytes.NewReader(modified), d.ChunkSize)
	if err != nil {
		t.Fatalf("ChunkHashes: %v", err)
	}

	for i := range local {
		differs := local[i] != d.ChunkHash[i]
		if i == 1 && !differs {
			t.Fatalf("expected chunk 1 to differ")
		}
		if i != 1 && differs {
			t.Fatalf("expected chunk %d to be unchanged", i)
		}
	}
}

func TestHashWholeFileDigestChangesWithContent(t *testing.T) {
	a, err := Hash(bytes.NewReader([]byte("hello")), 5)
	if err != nil {
		t.Fatalf("Hash a: %v", err)
	}
	b, err := Hash(bytes.NewReader([]byte("world")), 5)
	if err != nil {
		t.Fatalf("Hash b: %v", err)
	}
	if a.Hash == b.Hash {
		t.Fatalf("expected different whole-file hashes for different content")
	}
}
