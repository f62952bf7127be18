// Package client implements the send side of a Teleporter transfer: the
// ClientSession per-file state machine (spec §4.6).
package client

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	tcrypto "github.com/deb2000-sudo/teleporter/internal/crypto"
	"github.com/deb2000-sudo/teleporter/internal/delta"
	"github.com/deb2000-sudo/teleporter/internal/framer"
	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

// maxDataPayload bounds each TeleportData frame's payload (spec §4.6 step 7:
// "at most 4 KiB payload each").
const maxDataPayload = 4096

// Request describes one file transfer attempt.
type Request struct {
	FilePath    string
	DestName    string // defaults to filepath.Base(FilePath) if empty
	Features    wire.Features
	Chmod       uint32
	Encrypt     bool
	Version     wire.Version
	DialTimeout time.Duration
	// Progress, if set, is called with the number of newly-sent bytes after
	// each Data frame is written, for a caller-driven progress display.
	Progress func(sentDelta uint64)
}

// Outcome summarizes how a transfer concluded, for the CLI to report.
type Outcome struct {
	Status       wire.Status
	BytesSent    uint64
	Elapsed      time.Duration
	SkippedChunks int
}

// Send runs one ClientSession against addr ("host:port"), implementing spec
// §4.6 steps 1-8.
func Send(addr string, req Request) (Outcome, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return Outcome{}, fmt.Errorf("open %s: %w", req.FilePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Outcome{}, fmt.Errorf("stat %s: %w", req.FilePath, err)
	}

	destName := req.DestName
	if destName == "" {
		destName = info.Name()
	}

	dialTimeout := req.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return Outcome{}, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	fr := framer.New(conn)

	var cs *tcrypto.Session
	if req.Encrypt {
		cs, err = handshake(fr)
		if err != nil {
			return Outcome{}, fmt.Errorf("ecdh handshake: %w", err)
		}
		fr.SetSession(cs)
	}

	init := wire.Init{
		Version:  req.Version,
		Features: req.Features,
		Chmod:    req.Chmod,
		FileSize: uint64(info.Size()),
		FileName: []byte(destName),
	}
	if err := fr.Send(wire.ActionInit, init.Serialize()); err != nil {
		return Outcome{}, fmt.Errorf("send init: %w", err)
	}

	action, payload, err := fr.Recv()
	if err != nil {
		return Outcome{}, fmt.Errorf("recv init ack: %w", err)
	}
	if action != wire.ActionInitAck {
		return Outcome{}, fmt.Errorf("expected InitAck, got action %v", action)
	}
	ack, err := wire.DeserializeInitAck(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("decode init ack: %w", err)
	}

	if ack.Status != wire.StatusProceed {
		return Outcome{Status: ack.Status}, nil
	}

	start := time.Now()
	sent, skipped, err := stream(fr, f, uint64(info.Size()), ack.Delta, req.Progress)
	if err != nil {
		return Outcome{Status: ack.Status}, fmt.Errorf("stream data: %w", err)
	}

	return Outcome{
		Status:        ack.Status,
		BytesSent:     sent,
		Elapsed:       time.Since(start),
		SkippedChunks: skipped,
	}, nil
}

// handshake runs spec §4.6 step 4: generate a keypair, exchange public
// keys, derive the shared secret.
func handshake(fr *framer.Framer) (*tcrypto.Session, error) {
	cs, err := tcrypto.NewSession()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	if err := fr.Send(wire.ActionEcdh, cs.PublicKey[:]); err != nil {
		return nil, fmt.Errorf("send ecdh: %w", err)
	}

	action, payload, err := fr.Recv()
	if err != nil {
		return nil, fmt.Errorf("recv ecdh ack: %w", err)
	}
	if action != wire.ActionEcdhAck {
		return nil, fmt.Errorf("expected EcdhAck, got action %v", action)
	}
	if len(payload) < tcrypto.PubKeySize {
		return nil, wire.ErrInvalidPubKey
	}
	if err := cs.Derive(payload[:tcrypto.PubKeySize]); err != nil {
		return nil, fmt.Errorf("derive shared secret: %w", err)
	}
	return cs, nil
}

// stream implements spec §4.6 steps 7-8: stream Data frames (skipping
// unchanged chunks per serverDelta if present), then a terminal frame.
func stream(fr *framer.Framer, f *os.File, fileSize uint64, serverDelta *wire.Delta, progress func(uint64)) (sent uint64, skippedChunks int, err error) {
	var skip map[uint64]bool
	chunkSize := uint64(0)

	if serverDelta != nil {
		chunkSize = uint64(serverDelta.ChunkSize)
		localHashes, err := delta.ChunkHashes(io.NewSectionReader(f, 0, int64(fileSize)), serverDelta.ChunkSize)
		if err != nil {
			return 0, 0, fmt.Errorf("hash local chunks: %w", err)
		}
		skip = make(map[uint64]bool, len(localHashes))
		for i, h := range localHashes {
			if i < len(serverDelta.ChunkHash) && h == serverDelta.ChunkHash[i] {
				skip[uint64(i)] = true
			}
		}
	}

	buf := make([]byte, maxDataPayload)
	var offset uint64
	for offset < fileSize {
		n := uint64(maxDataPayload)
		if remaining := fileSize - offset; remaining < n {
			n = remaining
		}

		if skip != nil && chunkSize > 0 {
			chunkIdx := offset / chunkSize
			chunkStart := chunkIdx * chunkSize
			chunkEnd := chunkStart + chunkSize
			if chunkEnd > fileSize {
				chunkEnd = fileSize
			}
			if skip[chunkIdx] && offset == chunkStart {
				offset = chunkEnd
				skippedChunks++
				continue
			}
			// Keep each frame within its chunk boundary so a changed chunk
			// is resent as chunk-aligned frames (a single frame when the
			// chunk is no larger than maxDataPayload).
			if chunkEnd-offset < n {
				n = chunkEnd - offset
			}
		}

		read, err := f.ReadAt(buf[:int(n)], int64(offset))
		if err != nil && err != io.EOF {
			return sent, skippedChunks, fmt.Errorf("read at offset %d: %w", offset, err)
		}

		frame := wire.Data{Offset: offset, Payload: append([]byte(nil), buf[:read]...)}
		if err := fr.Send(wire.ActionData, frame.Serialize()); err != nil {
			return sent, skippedChunks, fmt.Errorf("send data at offset %d: %w", offset, err)
		}

		sent += uint64(read)
		offset += uint64(read)
		if progress != nil {
			progress(uint64(read))
		}
	}

	terminal := wire.Data{Offset: fileSize}
	if err := fr.Send(wire.ActionData, terminal.Serialize()); err != nil {
		return sent, skippedChunks, fmt.Errorf("send terminal frame: %w", err)
	}

	return sent, skippedChunks, nil
}

// StatusMessage returns the human-readable line the CLI logs for a
// non-Proceed InitAck status (spec §4.6 step 6).
func StatusMessage(status wire.Status) string {
	switch status {
	case wire.StatusNoOverwrite:
		return "destination exists and overwrite was not requested"
	case wire.StatusNoSpace:
		return "destination has insufficient space"
	case wire.StatusNoPermission:
		return "destination rejected due to a permission error"
	case wire.StatusWrongVersion:
		return "protocol version mismatch with the destination"
	case wire.StatusRequiresEncryption:
		return "destination requires an encrypted session"
	case wire.StatusEncryptionError:
		return "encryption handshake failed"
	case wire.StatusBadFileName:
		return "destination rejected the filename"
	default:
		return fmt.Sprintf("unexpected status %d", status)
	}
}
