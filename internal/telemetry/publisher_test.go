package telemetry

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/livetrain/internal/dynamo"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}
	c.messages = append(c.messages, message{topic, retained, data})
	return newToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestPublisher_Throttle(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{Prefix: "bench", Interval: 0.1})

	for _, tm := range []float64{0, 0.01, 0.05, 0.1, 0.15, 0.2, 0.29, 0.3} {
		p.OnStep(dynamo.Telemetry{Time: tm})
	}

	want := []float64{0, 0.1, 0.2, 0.3}
	if len(client.messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(client.messages))
	}
	for i, msg := range client.messages {
		if msg.topic != "bench/telemetry" {
			t.Errorf("topic = %q", msg.topic)
		}
		var tel dynamo.Telemetry
		if err := json.Unmarshal(msg.payload, &tel); err != nil {
			t.Fatal(err)
		}
		if tel.Time != want[i] {
			t.Errorf("message %d at t=%v, want %v", i, tel.Time, want[i])
		}
	}
	if p.Published() != len(want) {
		t.Errorf("Published() = %d", p.Published())
	}
}

func TestPublisher_ResetRepublishes(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{Interval: 1})

	p.OnStep(dynamo.Telemetry{Time: 5})
	p.OnStep(dynamo.Telemetry{Time: 0})
	p.OnStep(dynamo.Telemetry{Time: 0.5})

	if len(client.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(client.messages))
	}
}

func TestPublisher_Failures(t *testing.T) {
	client := &fakeClient{err: errors.New("broker gone")}
	p := NewPublisher(client, Options{})

	p.OnStep(dynamo.Telemetry{Time: 0})
	p.OnStep(dynamo.Telemetry{Time: 1})

	if p.Failed() != 2 || p.Published() != 0 {
		t.Errorf("failed=%d published=%d", p.Failed(), p.Published())
	}
}

func TestPublisher_NonFiniteTelemetry(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{})

	p.OnStep(dynamo.Telemetry{Time: 0, Pose: dynamo.Pose{X: math.NaN()}})

	if len(client.messages) != 0 || p.Failed() != 1 {
		t.Errorf("expected encode failure, got %d messages", len(client.messages))
	}
}

func TestPublisher_Close(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{})
	p.Close()

	if !client.disconnected {
		t.Error("expected disconnect")
	}
	last := client.messages[len(client.messages)-1]
	if last.topic != "livetrain/status" || string(last.payload) != "offline" || !last.retained {
		t.Errorf("unexpected status message %+v", last)
	}
}
