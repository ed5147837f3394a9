package packet

import "io"

// TopicFilter pairs a subscription topic filter with its requested QoS,
// one payload entry of a Subscribe packet, MQTT-3.1.1 section 3.8.3.
type TopicFilter struct {
	Topic string
	QoS   byte
}

// Subscribe requests one or more topic filters, section 3.8.
type Subscribe struct {
	MessageID uint16
	Filters   []TopicFilter
}

func (p *Subscribe) Kind() byte { return SUBSCRIBE }

func (p *Subscribe) Pack(w io.Writer) error {
	body := NewWriter()
	body.U16(p.MessageID)
	for _, f := range p.Filters {
		if err := body.String(f.Topic); err != nil {
			return err
		}
		body.U8(f.QoS & 0x03)
	}
	return packBody(w, FixedHeader{Kind: SUBSCRIBE}, body.Bytes())
}

func (p *Subscribe) unpack(_ FixedHeader, r *Reader) error {
	id, err := r.U16()
	if err != nil {
		return err
	}
	p.MessageID = id
	for r.Len() > 0 {
		topic, err := r.String()
		if err != nil {
			return err
		}
		qos, err := r.U8()
		if err != nil {
			return err
		}
		p.Filters = append(p.Filters, TopicFilter{Topic: topic, QoS: qos & 0x03})
	}
	if len(p.Filters) == 0 {
		return ErrMalformedBody
	}
	return nil
}

// SubAck reports the outcome of each filter in a Subscribe, section 3.9.
type SubAck struct {
	MessageID   uint16
	ReturnCodes []byte
}

func (p *SubAck) Kind() byte { return SUBACK }

func (p *SubAck) Pack(w io.Writer) error {
	body := NewWriter()
	body.U16(p.MessageID)
	body.Raw(p.ReturnCodes)
	return packBody(w, FixedHeader{Kind: SUBACK}, body.Bytes())
}

func (p *SubAck) unpack(_ FixedHeader, r *Reader) error {
	id, err := r.U16()
	if err != nil {
		return err
	}
	p.MessageID = id
	codes, err := r.Remaining()
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return ErrMalformedBody
	}
	p.ReturnCodes = codes
	return nil
}

// Unsubscribe removes one or more topic filters, section 3.10.
type Unsubscribe struct {
	MessageID uint16
	Topics    []string
}

func (p *Unsubscribe) Kind() byte { return UNSUBSCRIBE }

func (p *Unsubscribe) Pack(w io.Writer) error {
	body := NewWriter()
	body.U16(p.MessageID)
	for _, t := range p.Topics {
		if err := body.String(t); err != nil {
			return err
		}
	}
	return packBody(w, FixedHeader{Kind: UNSUBSCRIBE}, body.Bytes())
}

func (p *Unsubscribe) unpack(_ FixedHeader, r *Reader) error {
	id, err := r.U16()
	if err != nil {
		return err
	}
	p.MessageID = id
	for r.Len() > 0 {
		topic, err := r.String()
		if err != nil {
			return err
		}
		p.Topics = append(p.Topics, topic)
	}
	if len(p.Topics) == 0 {
		return ErrMalformedBody
	}
	return nil
}
