package wire

import "errors"

// Protocol-level decode errors, returned by the Codec (spec §4.1) and by
// Framer when a frame's outer envelope is malformed.
var (
	ErrInvalidHeaderRead = errors.New("wire: invalid protocol header")
	ErrInvalidLength     = errors.New("wire: declared length does not match payload")
	ErrInvalidFileName   = errors.New("wire: filename shorter than declared length")
	ErrInvalidDelta      = errors.New("wire: malformed delta chunk-hash vector")
	ErrInvalidIV         = errors.New("wire: encrypted frame missing IV")
	ErrInvalidPubKey     = errors.New("wire: ecdh payload shorter than a public key")
	ErrInvalidStatusCode = errors.New("wire: unrecognized status code")
)
