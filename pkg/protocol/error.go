package protocol

import (
	"errors"
	"fmt"
)

// Framing errors.
var (
	ErrInvalidPacketType = errors.New("protocol: invalid packet type")
	ErrPacketTooLarge    = errors.New("protocol: packet size too large")
	ErrTruncatedHeader   = errors.New("protocol: length smaller than a header")
)

// Message errors.
var (
	ErrWrongMessageType   = errors.New("protocol: wrong message type")
	ErrInvalidMessage     = errors.New("protocol: invalid message")
	ErrRouteInfoNotFound  = errors.New("protocol: route info not found in dictionary")
	ErrRouteTooLong       = errors.New("protocol: route longer than 255 bytes")
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrDecompress         = errors.New("protocol: decompress body")
	ErrDuplicateRouteCode = errors.New("protocol: duplicate route code")

	// ErrDecompressedTooLarge matches ErrDecompress as well.
	ErrDecompressedTooLarge = fmt.Errorf("%w: inflated size exceeds limit", ErrDecompress)
)

// Handshake errors.
var (
	ErrInvalidHandshake = errors.New("protocol: invalid handshake payload")
	ErrHandshakeFailed  = errors.New("protocol: handshake failed")
)

// IsFatal reports whether err leaves the packet stream ambiguous, in which
// case the connection must be closed rather than the packet skipped.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidPacketType) || errors.Is(err, ErrPacketTooLarge)
}
