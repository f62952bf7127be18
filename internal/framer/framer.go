// Package framer implements the Framer (spec §4.2): reading and writing
// complete TeleportHeader frames over a net.Conn, transparently sealing and
// opening the payload when a CryptoSession has completed its handshake.
package framer

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/deb2000-sudo/teleporter/internal/crypto"
	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

// Framer reads and writes TeleportHeader frames over conn. A nil Session
// means frames travel in the clear; once SetSession is called with a
// derived session, subsequent Send calls encrypt and subsequent Recv calls
// decrypt any frame carrying the Encrypted bit. Recv returns a frame without
// that bit as-is, whether or not a session is attached.
type Framer struct {
	conn    net.Conn
	session *crypto.Session
}

// New wraps conn in a Framer with no encryption.
func New(conn net.Conn) *Framer {
	return &Framer{conn: conn}
}

// SetSession attaches a derived CryptoSession; all frames sent after this
// call are encrypted, and received frames carrying the Encrypted bit are
// decrypted.
func (f *Framer) SetSession(s *crypto.Session) {
	f.session = s
}

// Send writes one frame carrying action and payload. If a session is
// attached, payload is sealed and the frame carries the Encrypted bit and IV
// instead of the plaintext.
func (f *Framer) Send(action wire.Action, payload []byte) error {
	h := wire.NewHeader(action, payload)

	if f.session != nil {
		nonce, ciphertext, err := f.session.Seal(payload)
		if err != nil {
			return fmt.Errorf("framer: seal: %w", err)
		}
		iv := nonce
		h = wire.Header{Action: action, IV: &iv, Data: ciphertext}
	}

	if _, err := f.conn.Write(h.Serialize()); err != nil {
		return fmt.Errorf("framer: write: %w", err)
	}
	return nil
}

// Recv reads one complete frame, decrypting it if a session is attached,
// and returns its action and plaintext payload.
func (f *Framer) Recv() (wire.Action, []byte, error) {
	var fixed [wire.HeaderMinSize]byte
	if _, err := io.ReadFull(f.conn, fixed[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("framer: read header: %w", err)
	}

	protocol := binary.LittleEndian.Uint64(fixed[0:8])
	if protocol != wire.Protocol {
		return 0, nil, wire.ErrInvalidHeaderRead
	}
	dataLen := binary.LittleEndian.Uint32(fixed[8:12])
	action := wire.Action(fixed[12])

	var iv []byte
	if action.Encrypted() {
		iv = make([]byte, wire.IVSize)
		if _, err := io.ReadFull(f.conn, iv); err != nil {
			return 0, nil, fmt.Errorf("framer: read iv: %w", err)
		}
	}

	data := make([]byte, dataLen)
	if dataLen > 0 {
		if _, err := io.ReadFull(f.conn, data); err != nil {
			return 0, nil, fmt.Errorf("framer: read payload: %w", err)
		}
	}

	base := action.Base()
	if !action.Encrypted() {
		return base, data, nil
	}

	if f.session == nil {
		return 0, nil, fmt.Errorf("framer: received encrypted frame with no session attached")
	}
	plaintext, err := f.session.Open(iv, data)
	if err != nil {
		return 0, nil, fmt.Errorf("framer: decrypt: %w", err)
	}
	return base, plaintext, nil
}
