package packet

import "errors"

// Codec-level failures. ErrMalformedHeader, ErrMalformedBody and
// ErrPayloadTooLarge are the three kinds spec.md §7 lists for malformed wire
// data; the connection handler treats them as fatal to the in-flight decode
// (spec.md §7 propagation policy). ErrTruncated is not fatal: the dispatcher
// waits for more bytes.
var (
	// ErrTruncated means fewer bytes are available than the packet needs;
	// the dispatcher should wait for more bytes rather than fail the connection.
	ErrTruncated = errors.New("packet: truncated")

	// ErrMalformedHeader means the fixed header (or its remaining-length
	// field) could not be parsed: a 5th continuation byte, reserved flag
	// bits set on a packet type that forbids them, or an unknown packet type.
	ErrMalformedHeader = errors.New("packet: malformed header")

	// ErrMalformedBody means the fixed header parsed but the declared
	// remaining length did not match what the variable header and payload
	// actually consumed.
	ErrMalformedBody = errors.New("packet: malformed body")

	// ErrPayloadTooLarge means a remaining-length value exceeds 268,435,455,
	// the largest value four varint-length bytes can encode.
	ErrPayloadTooLarge = errors.New("packet: remaining length exceeds maximum")
)
