package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Reader is a cursor over a byte slice, decoding the big-endian primitives
// and length-prefixed strings an MQTT variable header and payload are built
// from. All methods return ErrTruncated once the underlying bytes run out.
type Reader struct {
	buf *bytes.Reader
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader {
	return &Reader{buf: bytes.NewReader(b)}
}

// Len reports the number of unread bytes.
func (r *Reader) Len() int { return r.buf.Len() }

// U8 reads one byte.
func (r *Reader) U8() (byte, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		return 0, ErrTruncated
	}
	return b, nil
}

// U16 reads a 16-bit big-endian integer.
func (r *Reader) U16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r.buf, b[:]); err != nil {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || n > r.buf.Len() {
		return nil, ErrTruncated
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		return nil, ErrTruncated
	}
	return b, nil
}

// Remaining reads every byte left in the stream.
func (r *Reader) Remaining() ([]byte, error) {
	return r.Bytes(r.buf.Len())
}

// String reads an MQTT string: a 2-byte big-endian length followed by that
// many UTF-8 bytes. A zero length yields "".
func (r *Reader) String() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Writer accumulates encoded bytes for a variable header and payload.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// U8 appends one byte.
func (w *Writer) U8(b byte) { w.buf.WriteByte(b) }

// U16 appends a 16-bit big-endian integer.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// Raw appends b unmodified.
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

// String appends an MQTT string: 2-byte big-endian length then s's bytes.
func (w *Writer) String(s string) error {
	if len(s) > 0xFFFF {
		return ErrPayloadTooLarge
	}
	w.U16(uint16(len(s)))
	w.buf.WriteString(s)
	return nil
}
