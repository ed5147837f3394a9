package packet

import "io"

// protocolName returns the MQTT string for the wire protocol name at the
// given level: "MQIsdp" for 3.1, "MQTT" for 3.1.1.
func protocolName(level byte) string {
	if level == VERSION310 {
		return "MQIsdp"
	}
	return "MQTT"
}

// ConnectFlags is the connect-flags byte of the CONNECT variable header,
// MQTT-3.1.1 section 3.1.2.3.
type ConnectFlags struct {
	UsernameFlag bool
	PasswordFlag bool
	WillRetain   bool
	WillQoS      byte
	WillFlag     bool
	CleanSession bool
}

func (f ConnectFlags) encode() byte {
	var b byte
	if f.UsernameFlag {
		b |= 0x80
	}
	if f.PasswordFlag {
		b |= 0x40
	}
	if f.WillRetain {
		b |= 0x20
	}
	b |= (f.WillQoS & 0x03) << 3
	if f.WillFlag {
		b |= 0x04
	}
	if f.CleanSession {
		b |= 0x02
	}
	return b
}

func decodeConnectFlags(b byte) ConnectFlags {
	return ConnectFlags{
		UsernameFlag: b&0x80 != 0,
		PasswordFlag: b&0x40 != 0,
		WillRetain:   b&0x20 != 0,
		WillQoS:      (b & 0x18) >> 3,
		WillFlag:     b&0x04 != 0,
		CleanSession: b&0x02 != 0,
	}
}

// Connect is the client's CONNECT request, MQTT-3.1.1 section 3.1.
type Connect struct {
	Level        byte // VERSION310 or VERSION311
	Flags        ConnectFlags
	KeepAlive    uint16
	ClientID     string
	WillTopic    string
	WillPayload  []byte
	Username     string
	Password     []byte
}

func (p *Connect) Kind() byte { return CONNECT }

func (p *Connect) Pack(w io.Writer) error {
	body := NewWriter()
	if err := body.String(protocolName(p.Level)); err != nil {
		return err
	}
	body.U8(p.Level)
	body.U8(p.Flags.encode())
	body.U16(p.KeepAlive)
	if err := body.String(p.ClientID); err != nil {
		return err
	}
	if p.Flags.WillFlag {
		if err := body.String(p.WillTopic); err != nil {
			return err
		}
		body.U16(uint16(len(p.WillPayload)))
		body.Raw(p.WillPayload)
	}
	if p.Flags.UsernameFlag {
		if err := body.String(p.Username); err != nil {
			return err
		}
	}
	if p.Flags.PasswordFlag {
		body.U16(uint16(len(p.Password)))
		body.Raw(p.Password)
	}
	return packBody(w, FixedHeader{Kind: CONNECT}, body.Bytes())
}

func (p *Connect) unpack(_ FixedHeader, r *Reader) error {
	name, err := r.String()
	if err != nil {
		return err
	}
	level, err := r.U8()
	if err != nil {
		return err
	}
	if (name == "MQIsdp" && level != VERSION310) || (name == "MQTT" && level != VERSION311) {
		return ErrMalformedBody
	}
	p.Level = level

	flagsByte, err := r.U8()
	if err != nil {
		return err
	}
	p.Flags = decodeConnectFlags(flagsByte)

	if p.KeepAlive, err = r.U16(); err != nil {
		return err
	}
	if p.ClientID, err = r.String(); err != nil {
		return err
	}
	if p.Flags.WillFlag {
		if p.WillTopic, err = r.String(); err != nil {
			return err
		}
		n, err := r.U16()
		if err != nil {
			return err
		}
		if p.WillPayload, err = r.Bytes(int(n)); err != nil {
			return err
		}
	}
	if p.Flags.UsernameFlag {
		if p.Username, err = r.String(); err != nil {
			return err
		}
	}
	if p.Flags.PasswordFlag {
		n, err := r.U16()
		if err != nil {
			return err
		}
		if p.Password, err = r.Bytes(int(n)); err != nil {
			return err
		}
	}
	return nil
}

// ConnAck is the broker's CONNECT acknowledgement, MQTT-3.1.1 section 3.2.
type ConnAck struct {
	SessionPresent bool
	ReturnCode     byte
}

func (p *ConnAck) Kind() byte { return CONNACK }

func (p *ConnAck) Pack(w io.Writer) error {
	body := NewWriter()
	var ack byte
	if p.SessionPresent {
		ack = 0x01
	}
	body.U8(ack)
	body.U8(p.ReturnCode)
	return packBody(w, FixedHeader{Kind: CONNACK}, body.Bytes())
}

func (p *ConnAck) unpack(_ FixedHeader, r *Reader) error {
	ack, err := r.U8()
	if err != nil {
		return err
	}
	p.SessionPresent = ack&0x01 != 0
	p.ReturnCode, err = r.U8()
	return err
}
