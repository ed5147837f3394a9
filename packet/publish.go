package packet

import "io"

// Publish carries an application message, MQTT-3.1.1 section 3.3. MessageID
// is only meaningful, and only present on the wire, when QoS > 0.
type Publish struct {
	Dup       bool
	QoS       byte
	Retain    bool
	Topic     string
	MessageID uint16
	Payload   []byte
}

func (p *Publish) Kind() byte { return PUBLISH }

func (p *Publish) Pack(w io.Writer) error {
	body := NewWriter()
	if err := body.String(p.Topic); err != nil {
		return err
	}
	if p.QoS > 0 {
		body.U16(p.MessageID)
	}
	body.Raw(p.Payload)
	h := FixedHeader{Kind: PUBLISH, Dup: p.Dup, QoS: p.QoS, Retain: p.Retain}
	return packBody(w, h, body.Bytes())
}

func (p *Publish) unpack(h FixedHeader, r *Reader) error {
	p.Dup, p.QoS, p.Retain = h.Dup, h.QoS, h.Retain
	topic, err := r.String()
	if err != nil {
		return err
	}
	p.Topic = topic
	if p.QoS > 0 {
		if p.MessageID, err = r.U16(); err != nil {
			return err
		}
	}
	p.Payload, err = r.Remaining()
	return err
}
