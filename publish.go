package mqtt

import (
	"sync"

	"github.com/golang-io/mqttc/packet"
)

// publishManager drives the four QoS send/receive flows and the two
// send-side plus one receive-side in-flight table (spec.md §4.7). Grounded
// on the teacher's InFight map (infight.go), split into the three tables
// the spec's QoS state machines need instead of one undifferentiated map.
type publishManager struct {
	mu                 sync.Mutex
	waitingPubAck      map[uint16]*packet.Publish // QoS 1 send, awaiting PubAck
	waitingPubRec      map[uint16]*packet.Publish // QoS 2 send, awaiting PubRec
	waitingPubComp     map[uint16]*packet.Publish // QoS 2 send, PubRec received, awaiting PubComp
	receivedUnreleased map[uint16]*packet.Publish // QoS 2 receive, awaiting PubRel

	mid  *midDispenser
	send func(packet.Packet) error

	// onDeliver fans a received Publish out to local subscribers. Invoked
	// once per received Publish for QoS 0/1 (a retransmitted QoS 1 Publish is
	// delivered again), and for QoS 2 only the first time a given message id
	// arrives (spec.md §4.7,
	// §3 invariant "delivered to local observers exactly once").
	onDeliver func(topic string, payload []byte)
}

func newPublishManager(send func(packet.Packet) error, onDeliver func(string, []byte)) *publishManager {
	p := &publishManager{
		waitingPubAck:      make(map[uint16]*packet.Publish),
		waitingPubRec:      make(map[uint16]*packet.Publish),
		waitingPubComp:     make(map[uint16]*packet.Publish),
		receivedUnreleased: make(map[uint16]*packet.Publish),
		send:               send,
		onDeliver:          onDeliver,
	}
	return p
}

// isLive reports whether id is in use by any of the four maps this manager
// owns (waitingPubAck, waitingPubRec, waitingPubComp, receivedUnreleased),
// part of the global message-identifier uniqueness invariant
// (spec.md §3) enforced jointly with the subscriptions manager's pending map.
func (p *publishManager) isLive(id uint16) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.waitingPubAck[id]; ok {
		return true
	}
	if _, ok := p.waitingPubRec[id]; ok {
		return true
	}
	if _, ok := p.waitingPubComp[id]; ok {
		return true
	}
	if _, ok := p.receivedUnreleased[id]; ok {
		return true
	}
	return false
}

// publish sends topic/payload at the given QoS, returning the allocated
// message identifier (0 for QoS 0, which is never tracked).
func (p *publishManager) publish(topic string, qos byte, payload []byte, retain bool) (uint16, error) {
	pkt := &packet.Publish{QoS: qos, Topic: topic, Payload: payload, Retain: retain}
	if qos == 0 {
		return 0, p.send(pkt)
	}

	id := p.mid.alloc("publish")
	pkt.MessageID = id

	p.mu.Lock()
	switch qos {
	case 1:
		p.waitingPubAck[id] = pkt
	case 2:
		p.waitingPubRec[id] = pkt
	}
	p.mu.Unlock()

	if err := p.send(pkt); err != nil {
		p.mu.Lock()
		delete(p.waitingPubAck, id)
		delete(p.waitingPubRec, id)
		p.mu.Unlock()
		return 0, err
	}
	return id, nil
}

// handlePubAck completes a QoS 1 send. An ack for an unknown id is dropped
// (spec.md §3 invariant: idempotent on unmatched acks).
func (p *publishManager) handlePubAck(a *packet.PubAck) {
	p.mu.Lock()
	delete(p.waitingPubAck, a.MessageID)
	p.mu.Unlock()
}

// handlePubRec advances a QoS 2 send from waiting-PubRec to waiting-PubComp
// and replies with PubRel. A PubRec for an unknown id is dropped.
func (p *publishManager) handlePubRec(a *packet.PubRec) {
	p.mu.Lock()
	pkt, ok := p.waitingPubRec[a.MessageID]
	if ok {
		delete(p.waitingPubRec, a.MessageID)
		p.waitingPubComp[a.MessageID] = pkt
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	_ = p.send(packet.NewPubRel(a.MessageID))
}

// handlePubComp completes a QoS 2 send. A PubComp for an unknown id is
// dropped - in particular one that arrives after disconnect() already
// dropped the entry.
func (p *publishManager) handlePubComp(a *packet.PubComp) {
	p.mu.Lock()
	delete(p.waitingPubComp, a.MessageID)
	p.mu.Unlock()
}

// handlePublish is the receive-path handler registered for PUBLISH: it
// acknowledges per the incoming QoS and fans the message out to local
// subscribers exactly once (spec.md §4.7).
func (p *publishManager) handlePublish(pub *packet.Publish) {
	switch pub.QoS {
	case 0:
		p.onDeliver(pub.Topic, pub.Payload)
	case 1:
		p.onDeliver(pub.Topic, pub.Payload)
		_ = p.send(packet.NewPubAck(pub.MessageID))
	case 2:
		p.mu.Lock()
		_, dup := p.receivedUnreleased[pub.MessageID]
		if !dup {
			p.receivedUnreleased[pub.MessageID] = pub
		}
		p.mu.Unlock()
		if !dup {
			p.onDeliver(pub.Topic, pub.Payload)
		}
		_ = p.send(packet.NewPubRec(pub.MessageID))
	}
}

// handlePubRel releases a QoS 2 receive-side entry and replies with
// PubComp. A PubRel for an unknown id is dropped (spec.md §5: "a PubRel for
// an unknown mid is dropped").
func (p *publishManager) handlePubRel(r *packet.PubRel) {
	p.mu.Lock()
	_, ok := p.receivedUnreleased[r.MessageID]
	delete(p.receivedUnreleased, r.MessageID)
	p.mu.Unlock()
	if !ok {
		return
	}
	_ = p.send(packet.NewPubComp(r.MessageID))
}

// reset drops every pending QoS 2 entry and QoS 1/2 send-side wait, as
// disconnect() does (spec.md §5 "Cancellation": no persistence across
// disconnect).
func (p *publishManager) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waitingPubAck = make(map[uint16]*packet.Publish)
	p.waitingPubRec = make(map[uint16]*packet.Publish)
	p.waitingPubComp = make(map[uint16]*packet.Publish)
	p.receivedUnreleased = make(map[uint16]*packet.Publish)
}
