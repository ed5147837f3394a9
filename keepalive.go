package mqtt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-io/mqttc/packet"
)

// keepAlive sends PingReq on an idle timer and force-disconnects after two
// consecutive unanswered pings (spec.md §4.6). Grounded on the teacher's
// ticker idiom in mem_topic.go's CleanEmptyTopic sweep, repurposed from a
// background cleanup sweep to a liveness heartbeat.
type keepAlive struct {
	period    time.Duration
	send      func(packet.Packet) error
	onTimeout func()

	mu       sync.Mutex
	sentSinceTick bool

	missed atomic.Int32
	stop   chan struct{}
	once   sync.Once
}

func newKeepAlive(period time.Duration, send func(packet.Packet) error, onTimeout func()) *keepAlive {
	return &keepAlive{period: period, send: send, onTimeout: onTimeout, stop: make(chan struct{})}
}

// noteSent marks that a packet was written since the last tick, so the
// ticker skips sending a redundant PingReq this period.
func (k *keepAlive) noteSent() {
	k.mu.Lock()
	k.sentSinceTick = true
	k.mu.Unlock()
}

// notePingResp resets the missed-ping counter on PingResp receipt.
func (k *keepAlive) notePingResp() {
	k.missed.Store(0)
}

// run blocks until stop is closed or two consecutive pings go unanswered.
// period == 0 disables the timer entirely.
func (k *keepAlive) run() {
	if k.period <= 0 {
		<-k.stop
		return
	}
	ticker := time.NewTicker(k.period)
	defer ticker.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			k.mu.Lock()
			sent := k.sentSinceTick
			k.sentSinceTick = false
			k.mu.Unlock()
			if sent {
				continue
			}
			if k.missed.Load() >= 2 {
				k.onTimeout()
				return
			}
			k.missed.Add(1)
			if err := k.send(&packet.PingReq{}); err != nil {
				k.onTimeout()
				return
			}
		}
	}
}

func (k *keepAlive) close() {
	k.once.Do(func() { close(k.stop) })
}
