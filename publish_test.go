package mqtt

import (
	"testing"

	"github.com/golang-io/mqttc/packet"
)

func newTestPublishManager() (*publishManager, *[]packet.Packet, *[]Message) {
	var sent []packet.Packet
	var delivered []Message
	p := newPublishManager(
		func(pkt packet.Packet) error { sent = append(sent, pkt); return nil },
		func(topic string, payload []byte) { delivered = append(delivered, Message{Topic: topic, Payload: payload}) },
	)
	p.mid = newMidDispenser(p.isLive)
	return p, &sent, &delivered
}

func TestPublishQoS0SendsNoMessageIDAndIsNotTracked(t *testing.T) {
	p, sent, _ := newTestPublishManager()
	id, err := p.publish("a/b", 0, []byte("hi"), false)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != 0 {
		t.Fatalf("id = %d, want 0 for QoS 0", id)
	}
	if p.isLive(0) {
		t.Fatalf("QoS 0 publish must not occupy the mid namespace")
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d packets, want 1", len(*sent))
	}
}

func TestPublishQoS1RoundTrip(t *testing.T) {
	p, sent, _ := newTestPublishManager()
	id, err := p.publish("a/b", 1, []byte("hi"), false)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !p.isLive(id) {
		t.Fatalf("expected id %d to be live awaiting PubAck", id)
	}
	p.handlePubAck(&packet.PubAck{MessageID: id})
	if p.isLive(id) {
		t.Fatalf("id %d still live after PubAck", id)
	}
	_ = sent
}

func TestPublishQoS2RoundTrip(t *testing.T) {
	p, sent, _ := newTestPublishManager()
	id, err := p.publish("a/b", 2, []byte("hi"), false)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	p.handlePubRec(&packet.PubRec{MessageID: id})
	if len(*sent) != 2 {
		t.Fatalf("sent %d packets after PubRec, want 2 (Publish, PubRel)", len(*sent))
	}
	if _, ok := (*sent)[1].(*packet.PubRel); !ok {
		t.Fatalf("second sent packet = %T, want *packet.PubRel", (*sent)[1])
	}
	p.handlePubComp(&packet.PubComp{MessageID: id})
	if p.isLive(id) {
		t.Fatalf("id %d still live after PubComp", id)
	}
}

// TestQoS2ReceiveExactlyOnceDelivery checks spec scenario 4: the broker
// retransmits a QoS 2 Publish with the same message id (e.g. after a missed
// PubRec), and the message must be delivered to local subscribers exactly
// once, though PubRec must still be resent each time.
func TestQoS2ReceiveExactlyOnceDelivery(t *testing.T) {
	p, sent, delivered := newTestPublishManager()
	pub := &packet.Publish{QoS: 2, Topic: "a/b", MessageID: 5, Payload: []byte("hi")}

	p.handlePublish(pub)
	p.handlePublish(pub) // duplicate, as on broker retransmission

	if len(*delivered) != 1 {
		t.Fatalf("delivered %d times, want exactly 1", len(*delivered))
	}
	pubRecCount := 0
	for _, s := range *sent {
		if _, ok := s.(*packet.PubRec); ok {
			pubRecCount++
		}
	}
	if pubRecCount != 2 {
		t.Fatalf("sent %d PubRec, want 2 (one per received Publish)", pubRecCount)
	}

	p.handlePubRel(&packet.PubRel{MessageID: 5})
	if p.isLive(5) {
		t.Fatalf("id 5 still live after PubRel")
	}
}

func TestQoS1ReceiveDeliversAndAcks(t *testing.T) {
	p, sent, delivered := newTestPublishManager()
	pub := &packet.Publish{QoS: 1, Topic: "a/b", MessageID: 3, Payload: []byte("hi")}
	p.handlePublish(pub)
	if len(*delivered) != 1 {
		t.Fatalf("delivered %d times, want 1", len(*delivered))
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d packets, want 1 PubAck", len(*sent))
	}
	if _, ok := (*sent)[0].(*packet.PubAck); !ok {
		t.Fatalf("sent %T, want *packet.PubAck", (*sent)[0])
	}
}

func TestHandlePubRelUnknownMidIsDropped(t *testing.T) {
	p, sent, _ := newTestPublishManager()
	p.handlePubRel(&packet.PubRel{MessageID: 77})
	if len(*sent) != 0 {
		t.Fatalf("sent %d packets for an unmatched PubRel, want 0", len(*sent))
	}
}

func TestPublishResetDropsInFlightState(t *testing.T) {
	p, _, _ := newTestPublishManager()
	id, _ := p.publish("a/b", 2, []byte("hi"), false)
	p.reset()
	if p.isLive(id) {
		t.Fatalf("id %d still live after reset", id)
	}
}
