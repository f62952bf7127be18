// Package wire implements the Teleporter Codec (spec §4.1): the message
// taxonomy exchanged between a sending ClientSession and a receiving
// ServerSession, serialized to and from little-endian byte vectors.
package wire

// Protocol is the 8-byte magic that stamps every outer frame, stored
// little-endian. Its bytes spell "TELEPORT" in ASCII when laid out on the
// wire, matching the literal values fixed by the original implementation
// this protocol was distilled from.
const Protocol uint64 = 0x54524f50454c4554

// HeaderMinSize is the smallest a serialized TeleportHeader can be: magic(8)
// + data_len(4) + action(1), with zero-length data and no IV.
const HeaderMinSize = 13

// IVSize is the length in bytes of the nonce/IV carried by an Encrypted
// frame.
const IVSize = 12

// Action is a bitmask-friendly message-type tag (spec §3 TeleportAction).
// Encrypted is a modifier OR'd onto any other action to indicate the
// payload is AEAD ciphertext preceded by a 12-byte IV; it is not a distinct
// message variant.
type Action uint8

const (
	ActionInit      Action = 0x01
	ActionInitAck   Action = 0x02
	ActionEcdh      Action = 0x04
	ActionEcdhAck   Action = 0x08
	ActionPing      Action = 0x10
	ActionPingAck   Action = 0x20
	ActionData      Action = 0x40
	ActionEncrypted Action = 0x80
)

// Encrypted reports whether the Encrypted modifier bit is set.
func (a Action) Encrypted() bool { return a&ActionEncrypted == ActionEncrypted }

// Base returns the action with the Encrypted modifier bit cleared.
func (a Action) Base() Action { return a &^ ActionEncrypted }

// Features is the negotiation bitmask exchanged between client and server
// (spec §3 TeleportFeatures). The client advertises requested features in
// TeleportInit.Features; the server echoes accepted features in
// TeleportInitAck.Features.
type Features uint32

const (
	FeatureNewFile   Features = 0x01
	FeatureDelta     Features = 0x02
	FeatureOverwrite Features = 0x04
	FeatureBackup    Features = 0x08
	FeatureRename    Features = 0x10
	FeaturePing      Features = 0x20
)

// Add ORs f into the feature set pointed to by opt.
func (f Features) Add(opt *Features) { *opt |= f }

// Check reports whether f is present in opt.
func (f Features) Check(opt Features) bool { return opt&f == f }

// Status is the 1-byte outcome code carried by a TeleportInitAck (spec §3
// TeleportStatus). Only Proceed and Pong are non-terminal for the session.
type Status uint8

const (
	StatusProceed            Status = 0x00
	StatusNoOverwrite        Status = 0x01
	StatusNoSpace            Status = 0x02
	StatusNoPermission       Status = 0x03
	StatusWrongVersion       Status = 0x04
	StatusRequiresEncryption Status = 0x05
	StatusEncryptionError    Status = 0x06
	StatusBadFileName        Status = 0x07
	StatusPong               Status = 0x08
	StatusUnknownAction      Status = 0xff
)

// ParseStatus validates a raw status byte against the enumerated set,
// returning ErrInvalidStatusCode for anything else (including values that
// look plausible but were never assigned) rather than silently mapping it.
func ParseStatus(b byte) (Status, error) {
	switch Status(b) {
	case StatusProceed, StatusNoOverwrite, StatusNoSpace, StatusNoPermission,
		StatusWrongVersion, StatusRequiresEncryption, StatusEncryptionError,
		StatusBadFileName, StatusPong, StatusUnknownAction:
		return Status(b), nil
	default:
		return 0, ErrInvalidStatusCode
	}
}
