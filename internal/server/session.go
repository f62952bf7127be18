// Package server implements the receive side of a Teleporter transfer: the
// ServerSession state machine (spec §4.5) and the dual-stack TCP listener
// that accepts connections into it.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	tcrypto "github.com/deb2000-sudo/teleporter/internal/crypto"
	"github.com/deb2000-sudo/teleporter/internal/delta"
	"github.com/deb2000-sudo/teleporter/internal/framer"
	"github.com/deb2000-sudo/teleporter/internal/session"
	"github.com/deb2000-sudo/teleporter/pkg/humanize"
	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

// Config controls policy decisions a ServerSession makes that the wire
// protocol itself leaves to the implementation.
type Config struct {
	// Version is the server's own protocol version, compared against the
	// client's Init for compatibility.
	Version wire.Version
	// MustEncrypt rejects any session whose first frame is neither Ecdh nor
	// Ping.
	MustEncrypt bool
	// AllowDangerousFilepath disables filename sanitization entirely.
	AllowDangerousFilepath bool
	// BaseDir is the root destination files are resolved against.
	BaseDir string
	// Logger receives one line per session lifecycle event. Defaults to
	// log.Default() if nil.
	Logger *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// serverSession is one accepted connection's worth of ServerSession state.
type serverSession struct {
	cfg    Config
	conn   net.Conn
	framer *framer.Framer
	crypto *tcrypto.Session
	inProg *session.InProgress
	id     string
}

// Handle runs one ServerSession to completion against conn, closing it on
// return. inProg is the set shared across all connections this listener has
// accepted.
func Handle(conn net.Conn, cfg Config, inProg *session.InProgress) {
	defer conn.Close()

	s := &serverSession{
		cfg:    cfg,
		conn:   conn,
		framer: framer.New(conn),
		inProg: inProg,
		id:     session.NewID(),
	}

	if err := s.run(); err != nil && !errors.Is(err, io.EOF) {
		cfg.logger().Printf("session %s: %v", s.id, err)
	}
}

// run drives S0 through S4.
func (s *serverSession) run() error {
	action, payload, err := s.framer.Recv()
	if err != nil {
		return fmt.Errorf("recv first frame: %w", err)
	}

	switch action {
	case wire.ActionPing:
		ack := wire.NewInitAck(wire.StatusPong, s.cfg.Version)
		return s.framer.Send(wire.ActionPingAck, ack.Serialize())

	case wire.ActionEcdh:
		return s.handleEcdh(payload)

	default:
		if s.cfg.MustEncrypt {
			ack := wire.NewInitAck(wire.StatusRequiresEncryption, s.cfg.Version)
			_ = s.framer.Send(wire.ActionInitAck, ack.Serialize())
			return errors.New("plaintext session rejected: encryption required")
		}
		// No Ecdh handshake: treat this very frame as the Init (S2 directly).
		return s.validateAndReceive(payload)
	}
}

// handleEcdh completes the handshake (S0 Ecdh branch) then reads the
// encrypted Init frame (S1).
func (s *serverSession) handleEcdh(remotePub []byte) error {
	if len(remotePub) < tcrypto.PubKeySize {
		return wire.ErrInvalidPubKey
	}

	cs, err := tcrypto.NewSession()
	if err != nil {
		return fmt.Errorf("generate session keypair: %w", err)
	}
	if err := cs.Derive(remotePub[:tcrypto.PubKeySize]); err != nil {
		return fmt.Errorf("derive shared secret: %w", err)
	}

	if err := s.framer.Send(wire.ActionEcdhAck, cs.PublicKey[:]); err != nil {
		return fmt.Errorf("send ecdh ack: %w", err)
	}
	s.crypto = cs
	s.framer.SetSession(cs)

	action, payload, err := s.framer.Recv()
	if err != nil {
		return fmt.Errorf("recv init after handshake: %w", err)
	}
	if action != wire.ActionInit {
		ack := wire.NewInitAck(wire.StatusEncryptionError, s.cfg.Version)
		_ = s.framer.Send(wire.ActionInitAck, ack.Serialize())
		return fmt.Errorf("expected Init after Ecdh handshake, got action %v", action)
	}
	return s.validateAndReceive(payload)
}

// validateAndReceive runs S2 (VALIDATE) and, on success, S3 (RECEIVE_LOOP)
// and S4 (CLEANUP).
func (s *serverSession) validateAndReceive(payload []byte) error {
	init, err := wire.DeserializeInit(payload)
	if err != nil {
		return fmt.Errorf("decode init: %w", err)
	}

	if !s.cfg.Version.Compatible(init.Version) {
		return s.reject(wire.StatusWrongVersion, "version %s incompatible with server %s", init.Version, s.cfg.Version)
	}

	name := sanitizeFilename(string(init.FileName), s.cfg.AllowDangerousFilepath)
	if name == "" {
		return s.reject(wire.StatusBadFileName, "filename %q sanitizes to empty", init.FileName)
	}
	path := destPath(s.cfg.BaseDir, name)

	if wire.FeatureRename.Check(init.Features) {
		path = resolveCollision(path)
		if rel, err := filepath.Rel(s.cfg.BaseDir, path); err == nil {
			name = rel
		}
	}

	existing, statErr := os.Stat(path)
	exists := statErr == nil

	if exists && !wire.FeatureOverwrite.Check(init.Features) {
		return s.reject(wire.StatusNoOverwrite, "destination %s exists and Overwrite was not requested", path)
	}

	var fileDelta *wire.Delta
	if exists && wire.FeatureDelta.Check(init.Features) && existing.Size() > 0 {
		d, err := s.computeDelta(path, uint64(existing.Size()))
		if err != nil {
			return fmt.Errorf("compute delta for %s: %w", path, err)
		}
		fileDelta = &d
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return s.reject(wire.StatusNoPermission, "mkdir -p %s: %v", filepath.Dir(path), err)
	}

	if exists && wire.FeatureBackup.Check(init.Features) {
		if err := backupFile(path); err != nil {
			return s.reject(wire.StatusNoPermission, "backup %s: %v", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, os.FileMode(init.Chmod))
	if err != nil {
		return s.reject(wire.StatusNoPermission, "open %s: %v", path, err)
	}
	defer f.Close()

	if err := os.Chmod(path, os.FileMode(init.Chmod)); err != nil {
		return s.reject(wire.StatusNoPermission, "chmod %s: %v", path, err)
	}

	if err := f.Truncate(int64(init.FileSize)); err != nil {
		return s.reject(wire.StatusNoPermission, "preallocate %s: %v", path, err)
	}

	accepted := init.Features &^ (wire.FeatureDelta | wire.FeatureOverwrite)
	if exists {
		accepted |= wire.FeatureOverwrite
	}
	if fileDelta != nil {
		accepted |= wire.FeatureDelta
	}

	ack := wire.InitAck{
		Status:   wire.StatusProceed,
		Version:  s.cfg.Version,
		Features: &accepted,
		Delta:    fileDelta,
	}
	if err := s.framer.Send(wire.ActionInitAck, ack.Serialize()); err != nil {
		return fmt.Errorf("send init ack: %w", err)
	}

	if !s.inProg.Add(name) {
		s.cfg.logger().Printf("session %s: %q already in progress, proceeding anyway (filesystem last-writer-wins)", s.id, name)
	}
	defer s.inProg.Remove(name)

	return s.receiveLoop(f, path, init.FileSize)
}

// reject sends a terminal InitAck carrying status and returns a descriptive
// error for the caller's log line.
func (s *serverSession) reject(status wire.Status, format string, args ...any) error {
	ack := wire.NewInitAck(status, s.cfg.Version)
	if sendErr := s.framer.Send(wire.ActionInitAck, ack.Serialize()); sendErr != nil {
		return fmt.Errorf("send reject ack: %w", sendErr)
	}
	return fmt.Errorf(format, args...)
}

// computeDelta opens path read-only and hashes its current content, before
// any backup or truncation touches it.
func (s *serverSession) computeDelta(path string, size uint64) (wire.Delta, error) {
	f, err := os.Open(path)
	if err != nil {
		return wire.Delta{}, err
	}
	defer f.Close()
	return delta.Hash(f, size)
}

// receiveLoop is S3: read Data frames until the terminal frame, writing
// each payload at its declared offset.
func (s *serverSession) receiveLoop(f *os.File, path string, fileSize uint64) error {
	start := time.Now()
	var received uint64

	for {
		action, payload, err := s.framer.Recv()
		if err != nil {
			return fmt.Errorf("recv data frame: %w", err)
		}
		if action != wire.ActionData {
			return fmt.Errorf("expected Data frame mid-transfer, got action %v", action)
		}

		frame, err := wire.DeserializeData(payload)
		if err != nil {
			return fmt.Errorf("decode data frame: %w", err)
		}

		if frame.IsTerminal() {
			if received != fileSize && frame.Offset != fileSize {
				return fmt.Errorf("terminal frame received %d bytes, want %d", received, fileSize)
			}
			if received != fileSize {
				s.cfg.logger().Printf("session %s: terminal frame's offset matches filesize but received byte count does not (%d != %d)", s.id, received, fileSize)
			}
			break
		}

		if frame.Offset+uint64(len(frame.Payload)) > fileSize {
			return fmt.Errorf("data frame overflows declared filesize: offset=%d len=%d filesize=%d", frame.Offset, len(frame.Payload), fileSize)
		}

		n, err := f.WriteAt(frame.Payload, int64(frame.Offset))
		if err != nil {
			return fmt.Errorf("write at offset %d: %w", frame.Offset, err)
		}
		if n != len(frame.Payload) {
			return fmt.Errorf("partial write at offset %d: wrote %d of %d bytes", frame.Offset, n, len(frame.Payload))
		}
		received += uint64(n)

		if received > fileSize {
			return fmt.Errorf("received %d bytes, exceeding declared filesize %d", received, fileSize)
		}
	}

	elapsed := time.Since(start)
	mbps := 0.0
	if elapsed > 0 {
		mbps = (float64(fileSize) * 8 / 1_000_000) / elapsed.Seconds()
	}
	s.cfg.logger().Printf("session %s: wrote %s to %s in %s (%.2f Mbps)", s.id, humanize.Bytes(int64(fileSize)), path, elapsed.Round(time.Millisecond), mbps)
	return nil
}
