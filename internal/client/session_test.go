package client

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deb2000-sudo/teleporter/internal/server"
	"github.com/deb2000-sudo/teleporter/internal/session"
	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

func startTestServer(t *testing.T, cfg server.Config) (addr string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	inProg := session.NewInProgress()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go server.Handle(conn, cfg, inProg)
		}
	}()
	return ln.Addr().String()
}

func TestClientSessionPlaintextNewFile(t *testing.T) {
	destDir := t.TempDir()
	cfg := server.Config{Version: wire.Version{Major: 0, Minor: 6, Patch: 0}, BaseDir: destDir}
	addr := startTestServer(t, cfg)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "payload.bin")
	content := bytes.Repeat([]byte{0x9}, 9000) // spans more than one 4KiB frame
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	outcome, err := Send(addr, Request{
		FilePath: srcPath,
		Features: wire.FeatureNewFile | wire.FeatureOverwrite,
		Chmod:    0o644,
		Version:  cfg.Version,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if outcome.Status != wire.StatusProceed {
		t.Fatalf("status = %v, want Proceed", outcome.Status)
	}
	if outcome.BytesSent != uint64(len(content)) {
		t.Fatalf("BytesSent = %d, want %d", outcome.BytesSent, len(content))
	}

	got, err := os.ReadFile(filepath.Join(destDir, "payload.bin"))
	if err != nil {
		t.Fatalf("read destination file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("destination content mismatch")
	}
}

func TestClientSessionEncryptedHandshake(t *testing.T) {
	destDir := t.TempDir()
	cfg := server.Config{Version: wire.Version{Major: 0, Minor: 6, Patch: 0}, BaseDir: destDir}
	addr := startTestServer(t, cfg)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "secret.bin")
	content := []byte("this travels encrypted over the wire")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	outcome, err := Send(addr, Request{
		FilePath: srcPath,
		Features: wire.FeatureNewFile | wire.FeatureOverwrite,
		Chmod:    0o644,
		Encrypt:  true,
		Version:  cfg.Version,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if outcome.Status != wire.StatusProceed {
		t.Fatalf("status = %v, want Proceed", outcome.Status)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "secret.bin"))
	if err != nil {
		t.Fatalf("read destination file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("destination content mismatch")
	}
}

func TestClientSessionDeltaSkipsUnchangedChunks(t *testing.T) {
	destDir := t.TempDir()
	cfg := server.Config{Version: wire.Version{Major: 0, Minor: 6, Patch: 0}, BaseDir: destDir}

	chunkSize := 1024
	original := bytes.Repeat([]byte{0x7}, chunkSize*3)
	if err := os.WriteFile(filepath.Join(destDir, "resume.bin"), original, 0o644); err != nil {
		t.Fatalf("seed destination file: %v", err)
	}

	addr := startTestServer(t, cfg)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "resume.bin")
	modified := append([]byte(nil), original...)
	modified[chunkSize+10] ^= 0xff // change a byte inside chunk index 1
	if err := os.WriteFile(srcPath, modified, 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	outcome, err := Send(addr, Request{
		FilePath: srcPath,
		Features: wire.FeatureNewFile | wire.FeatureOverwrite | wire.FeatureDelta,
		Chmod:    0o644,
		Version:  cfg.Version,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if outcome.Status != wire.StatusProceed {
		t.Fatalf("status = %v, want Proceed", outcome.Status)
	}
	if outcome.SkippedChunks != 2 {
		t.Fatalf("SkippedChunks = %d, want 2 (all but the changed chunk)", outcome.SkippedChunks)
	}
	if outcome.BytesSent != uint64(chunkSize) {
		t.Fatalf("BytesSent = %d, want %d (exactly the changed chunk)", outcome.BytesSent, chunkSize)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "resume.bin"))
	if err != nil {
		t.Fatalf("read destination file: %v", err)
	}
	if !bytes.Equal(got, modified) {
		t.Fatalf("destination content mismatch after delta transfer")
	}
}

func TestClientSessionDeltaAgainstFreshDestination(t *testing.T) {
	destDir := t.TempDir()
	cfg := server.Config{Version: wire.Version{Major: 0, Minor: 6, Patch: 0}, BaseDir: destDir}
	addr := startTestServer(t, cfg)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "new.bin")
	content := bytes.Repeat([]byte{0x3}, 4096)
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	// The destination doesn't exist yet, so the server can't compute a
	// delta even though the client asks for one; this must still proceed
	// as a full transfer rather than aborting on a malformed ack.
	outcome, err := Send(addr, Request{
		FilePath: srcPath,
		Features: wire.FeatureNewFile | wire.FeatureOverwrite | wire.FeatureDelta,
		Chmod:    0o644,
		Version:  cfg.Version,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if outcome.Status != wire.StatusProceed {
		t.Fatalf("status = %v, want Proceed", outcome.Status)
	}
	if outcome.SkippedChunks != 0 {
		t.Fatalf("SkippedChunks = %d, want 0 (no prior file to diff against)", outcome.SkippedChunks)
	}
	if outcome.BytesSent != uint64(len(content)) {
		t.Fatalf("BytesSent = %d, want %d (full transfer)", outcome.BytesSent, len(content))
	}

	got, err := os.ReadFile(filepath.Join(destDir, "new.bin"))
	if err != nil {
		t.Fatalf("read destination file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("destination content mismatch")
	}
}

func TestClientSessionConnectFailureIsScopedToOneFile(t *testing.T) {
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "x.bin")
	if err := os.WriteFile(srcPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	_, err := Send("127.0.0.1:1", Request{
		FilePath:    srcPath,
		Features:    wire.FeatureNewFile,
		Version:     wire.Version{Major: 0, Minor: 6, Patch: 0},
		DialTimeout: 200 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected connect failure")
	}
}
