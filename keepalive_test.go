package mqtt

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-io/mqttc/packet"
)

// TestKeepAliveTimesOutAfterTwoMissedPings checks spec scenario 5: a
// keep-alive period elapses twice with no PingResp and no other traffic,
// and the third tick force-disconnects without sending a third ping.
func TestKeepAliveTimesOutAfterTwoMissedPings(t *testing.T) {
	var pings int32
	var timedOut int32
	done := make(chan struct{})

	k := newKeepAlive(15*time.Millisecond,
		func(p packet.Packet) error {
			if _, ok := p.(*packet.PingReq); ok {
				atomic.AddInt32(&pings, 1)
			}
			return nil
		},
		func() {
			atomic.StoreInt32(&timedOut, 1)
			close(done)
		},
	)
	go k.run()
	defer k.close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive never timed out")
	}

	if atomic.LoadInt32(&timedOut) != 1 {
		t.Fatalf("onTimeout was not invoked")
	}
	if got := atomic.LoadInt32(&pings); got != 2 {
		t.Fatalf("sent %d PingReq before timeout, want exactly 2", got)
	}
}

func TestKeepAliveResetsOnPingResp(t *testing.T) {
	var pings int32
	var k *keepAlive
	k = newKeepAlive(15*time.Millisecond,
		func(p packet.Packet) error {
			atomic.AddInt32(&pings, 1)
			k.notePingResp()
			return nil
		},
		func() { t.Fatal("unexpected timeout: PingResp should have reset the missed counter") },
	)
	go k.run()
	defer k.close()

	time.Sleep(200 * time.Millisecond)
	if got := atomic.LoadInt32(&pings); got < 3 {
		t.Fatalf("sent only %d pings in 200ms at a 15ms period", got)
	}
}

func TestKeepAliveSkipsPingWhenTrafficSentThisTick(t *testing.T) {
	var pings int32
	k := newKeepAlive(15*time.Millisecond,
		func(p packet.Packet) error { atomic.AddInt32(&pings, 1); return nil },
		func() {},
	)
	go k.run()
	defer k.close()

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				k.noteSent()
			}
		}
	}()
	time.Sleep(100 * time.Millisecond)
	close(stop)

	if got := atomic.LoadInt32(&pings); got != 0 {
		t.Fatalf("sent %d PingReq while other traffic kept the connection alive, want 0", got)
	}
}

func TestKeepAliveZeroPeriodDisablesTimer(t *testing.T) {
	k := newKeepAlive(0, func(p packet.Packet) error {
		t.Fatal("should never send a ping with a zero keep-alive period")
		return nil
	}, func() {
		t.Fatal("should never time out with a zero keep-alive period")
	})
	done := make(chan struct{})
	go func() { k.run(); close(done) }()

	k.close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run() did not return after close()")
	}
}
