package server

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/deb2000-sudo/teleporter/internal/session"
)

// statusLineInterval is how often Serve logs the set of in-progress
// transfers, mirroring the single redrawn status line the original listener
// prints while files are being received.
const statusLineInterval = 5 * time.Second

// Listen binds a TCP listener for port, preferring the dual-stack "[::]"
// address and falling back to "0.0.0.0" if that bind fails (spec §6).
func Listen(port int) (net.Listener, error) {
	dualStack := fmt.Sprintf("[::]:%d", port)
	ln, err := net.Listen("tcp", dualStack)
	if err == nil {
		return ln, nil
	}

	v4only := fmt.Sprintf("0.0.0.0:%d", port)
	ln, v4err := net.Listen("tcp", v4only)
	if v4err != nil {
		return nil, fmt.Errorf("listen on %s (dual-stack error: %v): %w", v4only, err, v4err)
	}
	return ln, nil
}

// Serve runs the accept loop against ln, handing each connection to its own
// goroutine running a ServerSession. It blocks until ln.Accept fails (e.g.
// the listener is closed), at which point it returns that error.
func Serve(ln net.Listener, cfg Config) error {
	inProg := session.NewInProgress()
	logger := cfg.logger()

	ticker := time.NewTicker(statusLineInterval)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ticker.C:
				if names := inProg.Snapshot(); len(names) > 0 {
					logger.Printf("in progress: %s", strings.Join(names, ", "))
				}
			case <-done:
				return
			}
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		logger.Printf("accepted connection from %s", conn.RemoteAddr())
		go Handle(conn, cfg, inProg)
	}
}
