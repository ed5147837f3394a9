package mqtt

import (
	"testing"

	"github.com/golang-io/mqttc/packet"
)

func newTestSubscriptionsManager() (*subscriptionsManager, *[]packet.Packet) {
	var sent []packet.Packet
	m := newSubscriptionsManager(func(p packet.Packet) error {
		sent = append(sent, p)
		return nil
	}, newStat("test"))
	m.mid = newMidDispenser(m.isLive)
	return m, &sent
}

func TestSubscribeSendsSubscribeAndIsPending(t *testing.T) {
	m, sent := newTestSubscriptionsManager()
	sub, err := m.subscribe("a/b", 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.Status() != StatusPending {
		t.Fatalf("status = %v, want pending", sub.Status())
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d packets, want 1", len(*sent))
	}
	if _, ok := (*sent)[0].(*packet.Subscribe); !ok {
		t.Fatalf("sent %T, want *packet.Subscribe", (*sent)[0])
	}
}

// TestSubscribeIdempotence checks spec scenario 3: calling Subscribe twice
// for the same topic while a SubAck is still pending returns the same
// subscription and sends no second Subscribe packet.
func TestSubscribeIdempotence(t *testing.T) {
	m, sent := newTestSubscriptionsManager()
	first, err := m.subscribe("a/b", 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, err := m.subscribe("a/b", 1)
	if err != nil {
		t.Fatalf("subscribe (again): %v", err)
	}
	if first != second {
		t.Fatalf("got distinct subscriptions for repeated subscribe")
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d Subscribe packets, want 1", len(*sent))
	}
}

func TestSubscribeIdempotenceAfterActive(t *testing.T) {
	m, sent := newTestSubscriptionsManager()
	sub, _ := m.subscribe("a/b", 1)
	m.handleSubAck(&packet.SubAck{MessageID: sub.mid, ReturnCodes: []byte{1}})
	if sub.Status() != StatusActive {
		t.Fatalf("status = %v, want active", sub.Status())
	}
	again, err := m.subscribe("a/b", 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if again != sub {
		t.Fatalf("got a new subscription for an already-active topic")
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d Subscribe packets, want 1", len(*sent))
	}
}

func TestHandleSubAckFailureClosesChannel(t *testing.T) {
	m, _ := newTestSubscriptionsManager()
	sub, _ := m.subscribe("a/b", 1)
	m.handleSubAck(&packet.SubAck{MessageID: sub.mid, ReturnCodes: []byte{packet.SubAckFailure}})
	if sub.Status() != StatusDoesNotExist {
		t.Fatalf("status = %v, want does-not-exist", sub.Status())
	}
	if _, ok := <-sub.Messages(); ok {
		t.Fatalf("expected closed channel after SubAck failure")
	}
}

func TestHandleSubAckUnknownMidIsDropped(t *testing.T) {
	m, _ := newTestSubscriptionsManager()
	// No subscription was ever registered under mid 99; this must not panic
	// or otherwise corrupt state.
	m.handleSubAck(&packet.SubAck{MessageID: 99, ReturnCodes: []byte{0}})
	if m.status("a/b") != StatusDoesNotExist {
		t.Fatalf("unexpected state change from unmatched SubAck")
	}
}

func TestUnsubscribeKeysOffItsOwnMid(t *testing.T) {
	m, sent := newTestSubscriptionsManager()
	sub, _ := m.subscribe("a/b", 1)
	m.handleSubAck(&packet.SubAck{MessageID: sub.mid, ReturnCodes: []byte{1}})

	if err := m.unsubscribe("a/b"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if len(*sent) != 2 {
		t.Fatalf("sent %d packets, want 2 (Subscribe, Unsubscribe)", len(*sent))
	}
	unsub, ok := (*sent)[1].(*packet.Unsubscribe)
	if !ok {
		t.Fatalf("second packet = %T, want *packet.Unsubscribe", (*sent)[1])
	}
	if unsub.MessageID == sub.mid {
		t.Fatalf("Unsubscribe reused the original Subscribe mid %d instead of a fresh one", sub.mid)
	}

	m.handleUnsubAck(&packet.UnsubAck{MessageID: unsub.MessageID})
	if m.status("a/b") != StatusDoesNotExist {
		t.Fatalf("subscription still present after UnsubAck")
	}
}

func TestHandleUnsubAckUnknownMidIsDropped(t *testing.T) {
	m, _ := newTestSubscriptionsManager()
	sub, _ := m.subscribe("a/b", 1)
	m.handleSubAck(&packet.SubAck{MessageID: sub.mid, ReturnCodes: []byte{1}})
	m.handleUnsubAck(&packet.UnsubAck{MessageID: 4242})
	if m.status("a/b") != StatusActive {
		t.Fatalf("subscription was removed by an unmatched UnsubAck")
	}
}

func TestDispatchFansOutToEveryMatchingSubscription(t *testing.T) {
	m, _ := newTestSubscriptionsManager()
	subA, _ := m.subscribe("a/+", 0)
	m.handleSubAck(&packet.SubAck{MessageID: subA.mid, ReturnCodes: []byte{0}})
	subB, _ := m.subscribe("#", 0)
	m.handleSubAck(&packet.SubAck{MessageID: subB.mid, ReturnCodes: []byte{0}})

	m.dispatch("a/b", []byte("hi"))

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case msg := <-sub.Messages():
			if msg.Topic != "a/b" || string(msg.Payload) != "hi" {
				t.Fatalf("got %+v", msg)
			}
		default:
			t.Fatalf("subscription for %q did not receive the publish", sub.Topic)
		}
	}
}
