package packet

import (
	"bytes"
	"reflect"
	"testing"
)

// TestBareConnectWireBytes checks scenario 1 of the spec's concrete scenarios:
// Connect(client-id="c1", clean=1, keep-alive=30).
func TestBareConnectWireBytes(t *testing.T) {
	c := &Connect{
		Level:     VERSION311,
		Flags:     ConnectFlags{CleanSession: true},
		KeepAlive: 30,
		ClientID:  "c1",
	}
	var buf bytes.Buffer
	if err := c.Pack(&buf); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x10, 0x1A, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x02, 0x00, 0x1E, 0x00, 0x02, 'c', '1'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % X, want % X", buf.Bytes(), want)
	}
}

// TestQoS1PublishWireBytes checks scenario 2: publish("a/b", QoS1, "hi") with mid=1.
func TestQoS1PublishWireBytes(t *testing.T) {
	p := &Publish{QoS: 1, Topic: "a/b", MessageID: 1, Payload: []byte("hi")}
	var buf bytes.Buffer
	if err := p.Pack(&buf); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x32, 0x09, 0x00, 0x03, 'a', '/', 'b', 0x00, 0x01, 'h', 'i'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % X, want % X", buf.Bytes(), want)
	}
}

func TestPubAckWireBytes(t *testing.T) {
	a := NewPubAck(1)
	var buf bytes.Buffer
	if err := a.Pack(&buf); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x40, 0x02, 0x00, 0x01}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % X, want % X", buf.Bytes(), want)
	}
}

func TestPingReqWireBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := (&PingReq{}).Pack(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0xC0, 0x00}) {
		t.Fatalf("got % X", buf.Bytes())
	}
}

func roundTrip(t *testing.T, p Packet) Packet {
	t.Helper()
	var buf bytes.Buffer
	if err := p.Pack(&buf); err != nil {
		t.Fatalf("pack: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return got
}

func TestRoundTripAllKinds(t *testing.T) {
	pkts := []Packet{
		&Connect{Level: VERSION311, Flags: ConnectFlags{CleanSession: true, UsernameFlag: true, PasswordFlag: true, WillFlag: true, WillQoS: 1}, KeepAlive: 60, ClientID: "c1", WillTopic: "w", WillPayload: []byte("bye"), Username: "u", Password: []byte("p")},
		&ConnAck{SessionPresent: true, ReturnCode: Accepted},
		&Publish{QoS: 0, Topic: "a/b", Payload: []byte("hi")},
		&Publish{QoS: 2, Dup: true, Retain: true, Topic: "a/b", MessageID: 7, Payload: []byte("hi")},
		NewPubAck(9),
		NewPubRec(9),
		NewPubRel(9),
		NewPubComp(9),
		&Subscribe{MessageID: 1, Filters: []TopicFilter{{Topic: "a/+", QoS: 1}, {Topic: "#", QoS: 0}}},
		&SubAck{MessageID: 1, ReturnCodes: []byte{0, 1, SubAckFailure}},
		&Unsubscribe{MessageID: 2, Topics: []string{"a/+", "#"}},
		NewUnsubAck(2),
		&PingReq{},
		&PingResp{},
		&Disconnect{},
	}
	for _, p := range pkts {
		got := roundTrip(t, p)
		if !reflect.DeepEqual(got, p) {
			t.Errorf("round trip mismatch for %T:\n got=%#v\nwant=%#v", p, got, p)
		}
	}
}

func TestReadTruncated(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte{0x30})); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadMalformedFlags(t *testing.T) {
	// PUBREL with wrong reserved flags (0x00 instead of 0x02).
	b := []byte{0x60, 0x02, 0x00, 0x01}
	if _, err := Read(bytes.NewReader(b)); err != ErrMalformedHeader {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestReadMalformedBodyLeftoverBytes(t *testing.T) {
	// A PINGREQ fixed header claiming 1 byte of remaining length.
	b := []byte{0xC0, 0x01, 0x00}
	if _, err := Read(bytes.NewReader(b)); err != ErrMalformedBody {
		t.Fatalf("expected ErrMalformedBody, got %v", err)
	}
}
