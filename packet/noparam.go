package packet

import "io"

// noParam packs and unpacks the three packet types that carry neither a
// variable header nor a payload: PINGREQ, PINGRESP, DISCONNECT.
type noParam struct{ kind byte }

func (p noParam) pack(w io.Writer) error {
	return packBody(w, FixedHeader{Kind: p.kind}, nil)
}

func (p *noParam) unpack(h FixedHeader, r *Reader) error {
	if r.Len() != 0 {
		return ErrMalformedBody
	}
	p.kind = h.Kind
	return nil
}

// PingReq keeps the session alive, MQTT-3.1.1 section 3.12.
type PingReq struct{ noParam }

func (p *PingReq) Kind() byte             { return PINGREQ }
func (p *PingReq) Pack(w io.Writer) error { p.kind = PINGREQ; return p.noParam.pack(w) }

// PingResp answers a PingReq, section 3.13.
type PingResp struct{ noParam }

func (p *PingResp) Kind() byte             { return PINGRESP }
func (p *PingResp) Pack(w io.Writer) error { p.kind = PINGRESP; return p.noParam.pack(w) }

// Disconnect notifies a graceful close, section 3.14.
type Disconnect struct{ noParam }

func (p *Disconnect) Kind() byte             { return DISCONNECT }
func (p *Disconnect) Pack(w io.Writer) error { p.kind = DISCONNECT; return p.noParam.pack(w) }
