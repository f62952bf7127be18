// Package crypto implements the optional ECDH + AEAD layer negotiated over
// Ecdh/EcdhAck (spec §4.3 CryptoSession). A Session starts out holding only
// an ephemeral keypair; once the peer's public key arrives, Derive consumes
// the private key and leaves the Session holding only the AEAD it derived,
// so the private scalar never outlives the handshake.
package crypto

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"lukechampine.com/frand"
)

// PubKeySize is the wire length of an X25519 public key.
const PubKeySize = 32

// ErrNotDerived is returned by Encrypt/Decrypt before Derive has run.
var ErrNotDerived = errors.New("crypto: session key not yet derived")

// ErrAlreadyDerived is returned by Derive if called a second time; the
// private scalar is wiped after first use and cannot be reused.
var ErrAlreadyDerived = errors.New("crypto: private key already consumed")

// Session holds one side of an ECDH handshake and, once derived, the AEAD
// used to seal and open Data/Init/InitAck frames carrying the Encrypted
// action bit.
type Session struct {
	privateKey []byte
	PublicKey  [PubKeySize]byte

	aead cipher.AEAD
}

// NewSession generates a fresh ephemeral X25519 keypair.
func NewSession() (*Session, error) {
	sk := frand.Bytes(32)
	pk, err := curve25519.X25519(sk, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate keypair: %w", err)
	}

	s := &Session{privateKey: sk}
	copy(s.PublicKey[:], pk)
	return s, nil
}

// Derive completes the handshake against the peer's public key, deriving a
// ChaCha20-Poly1305 AEAD from the shared secret and discarding the local
// private scalar. remotePub must be exactly PubKeySize bytes.
func (s *Session) Derive(remotePub []byte) error {
	if s.privateKey == nil {
		return ErrAlreadyDerived
	}
	if len(remotePub) != PubKeySize {
		return fmt.Errorf("crypto: remote public key must be %d bytes, got %d", PubKeySize, len(remotePub))
	}

	secret, err := curve25519.X25519(s.privateKey, remotePub)
	if err != nil {
		return fmt.Errorf("crypto: derive shared secret: %w", err)
	}
	for i := range s.privateKey {
		s.privateKey[i] = 0
	}
	s.privateKey = nil

	key := blake2b.Sum256(secret)
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return fmt.Errorf("crypto: init aead: %w", err)
	}
	s.aead = aead
	return nil
}

// Derived reports whether Derive has completed successfully.
func (s *Session) Derived() bool { return s.aead != nil }

// Seal encrypts plaintext, returning a fresh random nonce and the sealed
// ciphertext (with authentication tag appended). The nonce is generated by
// the package CSPRNG and must travel with the ciphertext as the frame's IV.
func (s *Session) Seal(plaintext []byte) (nonce [wireIVSize]byte, ciphertext []byte, err error) {
	if s.aead == nil {
		return nonce, nil, ErrNotDerived
	}
	frand.Read(nonce[:])
	ciphertext = s.aead.Seal(nil, nonce[:], plaintext, nil)
	return nonce, ciphertext, nil
}

// Open authenticates and decrypts ciphertext sealed under nonce.
func (s *Session) Open(nonce []byte, ciphertext []byte) ([]byte, error) {
	if s.aead == nil {
		return nil, ErrNotDerived
	}
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open: %w", err)
	}
	return plaintext, nil
}

// wireIVSize mirrors pkg/wire.IVSize; duplicated rather than imported so this
// package has no dependency on the wire codec's framing concerns.
const wireIVSize = 12
