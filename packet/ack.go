package packet

import "io"

// packMID writes the shared variable header of PUBACK, PUBREC, PUBREL,
// PUBCOMP and UNSUBACK: a single 16-bit message identifier, no payload.
func packMID(w io.Writer, h FixedHeader, id uint16) error {
	body := NewWriter()
	body.U16(id)
	return packBody(w, h, body.Bytes())
}

func unpackMID(r *Reader) (uint16, error) {
	return r.U16()
}

// PubAck acknowledges a QoS 1 Publish, MQTT-3.1.1 section 3.4.
type PubAck struct{ MessageID uint16 }

func NewPubAck(id uint16) *PubAck { return &PubAck{MessageID: id} }

func (p *PubAck) Kind() byte             { return PUBACK }
func (p *PubAck) Pack(w io.Writer) error { return packMID(w, FixedHeader{Kind: PUBACK}, p.MessageID) }
func (p *PubAck) unpack(_ FixedHeader, r *Reader) (err error) {
	p.MessageID, err = unpackMID(r)
	return err
}

// PubRec is the first acknowledgement of a QoS 2 Publish, section 3.5.
type PubRec struct{ MessageID uint16 }

func NewPubRec(id uint16) *PubRec { return &PubRec{MessageID: id} }

func (p *PubRec) Kind() byte             { return PUBREC }
func (p *PubRec) Pack(w io.Writer) error { return packMID(w, FixedHeader{Kind: PUBREC}, p.MessageID) }
func (p *PubRec) unpack(_ FixedHeader, r *Reader) (err error) {
	p.MessageID, err = unpackMID(r)
	return err
}

// PubRel releases a QoS 2 Publish for delivery, section 3.6. Its fixed
// header always carries the reserved 0b0010 flag bits.
type PubRel struct{ MessageID uint16 }

func NewPubRel(id uint16) *PubRel { return &PubRel{MessageID: id} }

func (p *PubRel) Kind() byte             { return PUBREL }
func (p *PubRel) Pack(w io.Writer) error { return packMID(w, FixedHeader{Kind: PUBREL}, p.MessageID) }
func (p *PubRel) unpack(_ FixedHeader, r *Reader) (err error) {
	p.MessageID, err = unpackMID(r)
	return err
}

// PubComp completes a QoS 2 exchange, section 3.7.
type PubComp struct{ MessageID uint16 }

func NewPubComp(id uint16) *PubComp { return &PubComp{MessageID: id} }

func (p *PubComp) Kind() byte { return PUBCOMP }
func (p *PubComp) Pack(w io.Writer) error {
	return packMID(w, FixedHeader{Kind: PUBCOMP}, p.MessageID)
}
func (p *PubComp) unpack(_ FixedHeader, r *Reader) (err error) {
	p.MessageID, err = unpackMID(r)
	return err
}

// UnsubAck acknowledges an Unsubscribe, section 3.11.
type UnsubAck struct{ MessageID uint16 }

func NewUnsubAck(id uint16) *UnsubAck { return &UnsubAck{MessageID: id} }

func (p *UnsubAck) Kind() byte { return UNSUBACK }
func (p *UnsubAck) Pack(w io.Writer) error {
	return packMID(w, FixedHeader{Kind: UNSUBACK}, p.MessageID)
}
func (p *UnsubAck) unpack(_ FixedHeader, r *Reader) (err error) {
	p.MessageID, err = unpackMID(r)
	return err
}
