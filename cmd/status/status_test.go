package status

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		At:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Mode:          "running",
		Indicator:     OK,
		RawLevel:      512,
		Level:         51,
		AverageLevel:  50,
		HaveAverage:   true,
		TideHeight:    4.5,
		HaveTide:      true,
		TideState:     "connected",
		Goal:          50,
		ValvePosition: 130,
		ValveOpenPct:  50,
		CalLow:        0,
		CalHigh:       1000,
	}
}

func TestEncode(t *testing.T) {
	got := Encode(sampleSnapshot())
	want := map[string]string{
		"mode":           "running",
		"indicator":      "ok",
		"average":        "50",
		"tide":           "4.500",
		"goal":           "50",
		"valve-position": "130",
		"valve-open":     "50",
		"at":             "2025-06-01T12:00:00Z",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s = %v, want %v", k, got[k], v)
		}
	}

	s := sampleSnapshot()
	s.HaveAverage, s.HaveTide = false, false
	got = Encode(s)
	if got["average"] != "" || got["tide"] != "" || got["goal"] != "" {
		t.Fatalf("missing values should encode empty: %v", got)
	}
}

func TestLine(t *testing.T) {
	line := Line(sampleSnapshot())
	if line != "[ok] level 50% goal 50% valve 50% open" {
		t.Fatalf("Line() = %q", line)
	}
	s := sampleSnapshot()
	s.Indicator, s.HaveAverage = Stale, false
	if !strings.HasPrefix(Line(s), "[stale] level --") {
		t.Fatalf("Line() = %q", Line(s))
	}
}

type recordingSink struct {
	got []Snapshot
	err error
}

func (r *recordingSink) Show(_ context.Context, s Snapshot) error {
	r.got = append(r.got, s)
	return r.err
}

func TestMulti(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("down")}
	m := Multi{a, nil, b}

	err := m.Show(context.Background(), sampleSnapshot())
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("each sink should see the snapshot once: a=%d b=%d", len(a.got), len(b.got))
	}
}

func TestLatest(t *testing.T) {
	l := NewLatest()
	if got := l.Get(); got.Mode != "" {
		t.Fatalf("initial snapshot not empty: %+v", got)
	}
	_ = l.Show(context.Background(), sampleSnapshot())
	if got := l.Get(); got.ValvePosition != 130 {
		t.Fatalf("Get() = %+v", got)
	}
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTT struct {
	mqtt.Client
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.qos = qos
	f.payload, _ = payload.([]byte)
	return newFakeToken(f.err)
}

func TestMQTTSink_Publishes(t *testing.T) {
	client := &fakeMQTT{}
	sink := newMQTTSink(client, MQTTConfig{Topic: "tank/1", QoS: 1})

	if err := sink.Show(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("Show() err=%v", err)
	}
	if client.topic != "tank/1" || client.qos != 1 {
		t.Fatalf("published to %s qos=%d", client.topic, client.qos)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(client.payload, &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if decoded["valve_position"] != float64(130) {
		t.Fatalf("payload valve_position = %v", decoded["valve_position"])
	}

	client.err = errors.New("not connected")
	if err := sink.Show(context.Background(), sampleSnapshot()); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestMQTTSink_DefaultTopic(t *testing.T) {
	sink := newMQTTSink(&fakeMQTT{}, MQTTConfig{})
	if sink.topic != "tidevalve/status" {
		t.Fatalf("default topic = %q", sink.topic)
	}
}
