// Package telemetry publishes simulation snapshots to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/dynamo"
)

const (
	DefaultPrefix   = "livetrain"
	DefaultClientID = "livetrain-sim"
	// DefaultInterval is in simulation seconds.
	DefaultInterval = 0.05

	publishTimeout = time.Second
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Options struct {
	Broker   string
	ClientID string
	Prefix   string
	Interval float64
	QoS      byte
	Retained bool
	Logger   *zap.Logger
}

func (o *Options) defaults() {
	if o.ClientID == "" {
		o.ClientID = DefaultClientID
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Publisher is a dynamo.Observer that forwards at most one snapshot per
// Interval of simulation time to <prefix>/telemetry. A snapshot earlier
// than the last one published (after a reset) is always sent.
type Publisher struct {
	client   Client
	topic    string
	status   string
	interval float64
	qos      byte
	retained bool
	logger   *zap.Logger

	mu        sync.Mutex
	last      float64
	sent      bool
	published int
	failed    int
}

func NewPublisher(client Client, opts Options) *Publisher {
	opts.defaults()
	return &Publisher{
		client:   client,
		topic:    opts.Prefix + "/telemetry",
		status:   opts.Prefix + "/status",
		interval: opts.Interval,
		qos:      opts.QoS,
		retained: opts.Retained,
		logger:   opts.Logger,
	}
}

// Connect dials opts.Broker and marks <prefix>/status online. The broker
// flips it to offline if the connection drops.
func Connect(opts Options) (*Publisher, error) {
	opts.defaults()
	status := opts.Prefix + "/status"

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5*time.Second).
		SetWill(status, "offline", 1, true)
	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, token.Error())
	}
	if token := client.Publish(status, 1, true, "online"); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("mqtt publish %s: %w", status, token.Error())
	}
	opts.Logger.Info("connected to MQTT", zap.String("broker", opts.Broker), zap.String("prefix", opts.Prefix))
	return NewPublisher(client, opts), nil
}

func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) due(t float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent && t >= p.last && t-p.last < p.interval-1e-9 {
		return false
	}
	p.last, p.sent = t, true
	return true
}

func (p *Publisher) OnStep(tel dynamo.Telemetry) {
	if !p.due(tel.Time) {
		return
	}
	payload, err := json.Marshal(tel)
	if err != nil {
		p.fail(err)
		return
	}
	token := p.client.Publish(p.topic, p.qos, p.retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.fail(fmt.Errorf("publish %s: timed out", p.topic))
		return
	}
	if err := token.Error(); err != nil {
		p.fail(err)
		return
	}
	p.mu.Lock()
	p.published++
	p.mu.Unlock()
}

// fail logs the first error and every hundredth after it.
func (p *Publisher) fail(err error) {
	p.mu.Lock()
	p.failed++
	n := p.failed
	p.mu.Unlock()
	if n == 1 || n%100 == 0 {
		p.logger.Warn("telemetry publish failed", zap.Int("failures", n), zap.Error(err))
	}
}

func (p *Publisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

func (p *Publisher) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Close marks the status topic offline and disconnects.
func (p *Publisher) Close() {
	if token := p.client.Publish(p.status, 1, true, "offline"); !token.WaitTimeout(publishTimeout) {
		p.logger.Debug("status publish timed out")
	}
	p.client.Disconnect(250)
}

var _ dynamo.Observer = (*Publisher)(nil)
