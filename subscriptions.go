package mqtt

import (
	"sync"
	"time"

	"github.com/golang-io/mqttc/packet"
	"github.com/golang-io/mqttc/topic"
)

// SubscriptionStatus is the lifecycle state of a Subscription, spec.md §3:
// pending (Subscribe sent, SubAck not received) -> active (SubAck
// received) -> absent (UnsubAck received or never existed).
type SubscriptionStatus int

const (
	StatusDoesNotExist SubscriptionStatus = iota
	StatusPending
	StatusActive
)

// Message is a received Publish delivered to a Subscription's channel.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription is the observable handle spec.md §6 returns from Subscribe:
// a per-subscription channel of received messages, replacing the teacher's
// general-purpose change notifier (spec.md §9 "Observable channels").
type Subscription struct {
	Topic     string
	QoS       byte
	Created   time.Time

	mid uint16
	ch  chan Message

	mu     sync.RWMutex
	status SubscriptionStatus
}

// Messages returns the channel received publishes matching this
// subscription's topic pattern arrive on.
func (s *Subscription) Messages() <-chan Message { return s.ch }

// Status reports the subscription's current lifecycle state.
func (s *Subscription) Status() SubscriptionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Subscription) setStatus(st SubscriptionStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// subscriptionsManager owns subscription registration, SubAck/UnsubAck
// confirmation, and topic-match fan-out (spec.md §4.8). Grounded on the
// teacher's TopicSubscribed map in mem_topic.go, repointed from a broker's
// per-connection subscriber list to a single client's own subscriptions.
type subscriptionsManager struct {
	mu sync.Mutex

	subscriptions map[string]*Subscription // active, keyed by canonical topic
	pending       map[uint16]*Subscription // mid -> subscription awaiting SubAck

	// pendingUnsubscribe resolves spec.md §9's open question: key removal
	// off the Unsubscribe packet's own message id, not the subscription's
	// original Subscribe mid the teacher's ambiguous source used.
	pendingUnsubscribe map[uint16]string

	mid  *midDispenser
	send func(packet.Packet) error
	stat *stat
}

func newSubscriptionsManager(send func(packet.Packet) error, s *stat) *subscriptionsManager {
	return &subscriptionsManager{
		subscriptions:      make(map[string]*Subscription),
		pending:            make(map[uint16]*Subscription),
		pendingUnsubscribe: make(map[uint16]string),
		send:               send,
		stat:               s,
	}
}

// isLive reports whether id is in use by the pending-subscribe map or the
// pending-unsubscribe map, part of the joint message-identifier uniqueness
// invariant (spec.md §3): neither table's mid may be handed out again while
// the other is still waiting on it.
func (m *subscriptionsManager) isLive(id uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[id]; ok {
		return true
	}
	_, ok := m.pendingUnsubscribe[id]
	return ok
}

// subscribe registers topic at qos. Repeated calls for the same topic
// return the existing Subscription unchanged and send no second Subscribe
// packet (spec.md §3 invariant, §8 "Subscribe idempotence").
func (m *subscriptionsManager) subscribe(t string, qos byte) (*Subscription, error) {
	canon, err := topic.Canonicalize(t)
	if err != nil {
		return nil, newErr(ErrInvalidTopic, err)
	}

	m.mu.Lock()
	if sub, ok := m.subscriptions[canon]; ok {
		m.mu.Unlock()
		return sub, nil
	}
	for _, sub := range m.pending {
		if sub.Topic == canon {
			m.mu.Unlock()
			return sub, nil
		}
	}
	m.mu.Unlock()

	id := m.mid.alloc("subscriptions")
	sub := &Subscription{
		Topic:   canon,
		QoS:     qos,
		Created: time.Now(),
		mid:     id,
		ch:      make(chan Message, 32),
		status:  StatusPending,
	}

	m.mu.Lock()
	m.pending[id] = sub
	m.mu.Unlock()

	pkt := &packet.Subscribe{MessageID: id, Filters: []packet.TopicFilter{{Topic: canon, QoS: qos}}}
	if err := m.send(pkt); err != nil {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

// handleSubAck moves a pending subscription to active on a granted return
// code, or drops it on 0x80 failure. A SubAck for an unknown mid is
// dropped (spec.md §3 invariant: idempotent on unmatched acks).
func (m *subscriptionsManager) handleSubAck(a *packet.SubAck) {
	m.mu.Lock()
	sub, ok := m.pending[a.MessageID]
	if ok {
		delete(m.pending, a.MessageID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	code := byte(packet.SubAckFailure)
	if len(a.ReturnCodes) > 0 {
		code = a.ReturnCodes[0]
	}
	if code == packet.SubAckFailure {
		sub.setStatus(StatusDoesNotExist)
		close(sub.ch)
		return
	}
	sub.QoS = code
	sub.setStatus(StatusActive)
	m.mu.Lock()
	m.subscriptions[sub.Topic] = sub
	m.mu.Unlock()
	m.stat.ActiveSubs.Inc()
}

// unsubscribe sends Unsubscribe for an existing subscription's topic under
// a freshly allocated message id, tracked in pendingUnsubscribe.
func (m *subscriptionsManager) unsubscribe(t string) error {
	canon, err := topic.Canonicalize(t)
	if err != nil {
		return newErr(ErrInvalidTopic, err)
	}

	m.mu.Lock()
	_, ok := m.subscriptions[canon]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	id := m.mid.alloc("unsubscribe")
	m.mu.Lock()
	m.pendingUnsubscribe[id] = canon
	m.mu.Unlock()

	return m.send(&packet.Unsubscribe{MessageID: id, Topics: []string{canon}})
}

// handleUnsubAck removes the subscription named by the Unsubscribe mid
// recorded in pendingUnsubscribe. An UnsubAck for an unknown mid is dropped.
func (m *subscriptionsManager) handleUnsubAck(a *packet.UnsubAck) {
	m.mu.Lock()
	t, ok := m.pendingUnsubscribe[a.MessageID]
	if ok {
		delete(m.pendingUnsubscribe, a.MessageID)
	}
	var sub *Subscription
	if ok {
		sub = m.subscriptions[t]
		delete(m.subscriptions, t)
	}
	m.mu.Unlock()
	if sub != nil {
		sub.setStatus(StatusDoesNotExist)
		close(sub.ch)
		m.stat.ActiveSubs.Dec()
	}
}

// status reports the lifecycle state of the subscription for topic, or
// StatusDoesNotExist if there is none.
func (m *subscriptionsManager) status(t string) SubscriptionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[t]; ok {
		return sub.Status()
	}
	for _, sub := range m.pending {
		if sub.Topic == t {
			return StatusPending
		}
	}
	return StatusDoesNotExist
}

// dispatch fans a received publish out to every active subscription whose
// pattern matches topicName (spec.md §4.8). Delivery to a full subscriber
// channel is dropped rather than blocking the receive loop. The match and
// every send happen under m.mu, the single mutex spec.md §5 requires to
// serialize dispatch against reset: sends are non-blocking (select/default)
// so holding the lock here cannot deadlock, and it rules out a reset()
// closing sub.ch concurrently with a send on that same channel.
func (m *subscriptionsManager) dispatch(topicName string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pattern, sub := range m.subscriptions {
		if !topic.Match(pattern, topicName) {
			continue
		}
		select {
		case sub.ch <- Message{Topic: topicName, Payload: payload}:
		default:
		}
	}
}

// reset clears all bookkeeping without sending Unsubscribe, as
// disconnect() does: sessions are always clean (spec.md §6).
func (m *subscriptionsManager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.pending {
		sub.setStatus(StatusDoesNotExist)
		close(sub.ch)
	}
	for _, sub := range m.subscriptions {
		sub.setStatus(StatusDoesNotExist)
		close(sub.ch)
	}
	m.stat.ActiveSubs.Sub(float64(len(m.subscriptions)))
	m.subscriptions = make(map[string]*Subscription)
	m.pending = make(map[uint16]*Subscription)
	m.pendingUnsubscribe = make(map[uint16]string)
}
