package packet

import (
	"fmt"
	"io"
)

// FixedHeader is the 2-5 byte header every MQTT control packet starts with.
//
//	byte 1   | Control Packet type (bits 7-4) | Flags (bits 3-0) |
//	byte 2.. | Remaining Length (1-4 bytes)   |
type FixedHeader struct {
	Kind   byte
	Dup    bool
	QoS    byte
	Retain bool

	// RemainingLength is the byte length of the variable header plus
	// payload, as declared on the wire.
	RemainingLength uint32
}

func (h FixedHeader) String() string {
	return fmt.Sprintf("%s len=%d", KindName[h.Kind], h.RemainingLength)
}

func (h FixedHeader) flagsByte() (byte, error) {
	var b byte
	switch h.Kind {
	case PUBLISH:
		if h.QoS > 2 {
			return 0, ErrMalformedHeader
		}
		if h.Dup {
			b |= 0x08
		}
		b |= h.QoS << 1
		if h.Retain {
			b |= 0x01
		}
	case PUBREL, SUBSCRIBE, UNSUBSCRIBE:
		b = 0x02 // fixed Dup=0, QoS=1, Retain=0
	default:
		b = 0x00
	}
	return b, nil
}

func (h FixedHeader) pack(w io.Writer) error {
	flags, err := h.flagsByte()
	if err != nil {
		return err
	}
	enc, err := encodeLength(h.RemainingLength)
	if err != nil {
		return err
	}
	b := make([]byte, 0, 1+len(enc))
	b = append(b, h.Kind<<4|flags)
	b = append(b, enc...)
	_, err = w.Write(b)
	return err
}

// readFixedHeader parses the fixed header from r, validating the reserved
// flag bits for packet types that require them to be a fixed value
// (PUBREL, SUBSCRIBE, UNSUBSCRIBE must carry 0b0010 on the low nibble;
// every other non-PUBLISH type must carry 0).
func readFixedHeader(r io.Reader) (FixedHeader, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return FixedHeader{}, ErrTruncated
	}
	h := FixedHeader{
		Kind:   b[0] >> 4,
		Dup:    b[0]&0x08 != 0,
		QoS:    (b[0] & 0x06) >> 1,
		Retain: b[0]&0x01 != 0,
	}
	switch h.Kind {
	case PUBLISH:
		if h.QoS > 2 {
			return h, ErrMalformedHeader
		}
	case PUBREL, SUBSCRIBE, UNSUBSCRIBE:
		if h.Dup || h.QoS != 1 || h.Retain {
			return h, ErrMalformedHeader
		}
	default:
		if h.Dup || h.QoS != 0 || h.Retain {
			return h, ErrMalformedHeader
		}
	}
	n, err := decodeLength(r)
	if err != nil {
		return h, err
	}
	h.RemainingLength = n
	return h, nil
}
