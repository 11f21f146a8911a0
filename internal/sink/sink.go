// Package sink relays netinfo query results from the event bus to an MQTT
// broker. It publishes only what callers already asked for and never polls.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/version"
	"github.com/HerbHall/netsense/pkg/plugin"
)

const (
	relayPrefix = "netinfo."
	queueSize   = 64
	sendTimeout = 5 * time.Second
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Plugin)(nil)
	_ plugin.HealthChecker   = (*Plugin)(nil)
	_ plugin.EventSubscriber = (*Plugin)(nil)
	_ plugin.Validator       = (*Plugin)(nil)
)

type message struct {
	topic   string
	payload []byte
}

// Plugin is the MQTT result sink module.
type Plugin struct {
	dial   func(Options) (Publisher, error)
	logger *zap.Logger

	enabled bool
	prefix  string
	opts    Options

	mu      sync.Mutex
	pub     Publisher
	queue   chan message
	done    chan struct{}
	wg      sync.WaitGroup
	sent    uint64
	dropped uint64
}

// NewPlugin creates the sink module.
func NewPlugin() *Plugin {
	return &Plugin{dial: Dial}
}

func (p *Plugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "sink",
		Version:     version.Short(),
		Description: "MQTT relay of network info results",
	}
}

func (p *Plugin) Init(_ context.Context, deps plugin.Dependencies) error {
	p.logger = deps.Logger
	cfg := deps.Config

	p.enabled = cfg.GetBool("mqtt.enabled")
	p.prefix = strings.Trim(cfg.GetString("mqtt.topic_prefix"), "/")
	p.opts = Options{
		Broker:         cfg.GetString("mqtt.broker"),
		ClientID:       cfg.GetString("mqtt.client_id"),
		QoS:            byte(cfg.GetInt("mqtt.qos")), //nolint:gosec // range checked in ValidateConfig
		ConnectTimeout: cfg.GetDuration("mqtt.connect_timeout"),
	}
	if p.opts.ConnectTimeout <= 0 {
		p.opts.ConnectTimeout = 10 * time.Second
	}

	if !p.enabled {
		p.logger.Info("mqtt sink disabled")
		return nil
	}
	p.logger.Info("mqtt sink configured",
		zap.String("broker", p.opts.Broker),
		zap.String("topic_prefix", p.prefix),
	)
	return nil
}

func (p *Plugin) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if p.opts.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt.enabled is set")
	}
	if p.opts.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", p.opts.QoS)
	}
	return nil
}

// Start connects to the broker and starts the delivery worker.
func (p *Plugin) Start(_ context.Context) error {
	if !p.enabled {
		return nil
	}
	pub, err := p.dial(p.opts)
	if err != nil {
		return fmt.Errorf("mqtt sink: %w", err)
	}

	p.mu.Lock()
	p.pub = pub
	p.queue = make(chan message, queueSize)
	p.done = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.deliver(pub, p.queue, p.done)
	return nil
}

func (p *Plugin) Stop(_ context.Context) error {
	p.mu.Lock()
	pub, done := p.pub, p.done
	p.pub, p.queue, p.done = nil, nil, nil
	p.mu.Unlock()

	if pub == nil {
		return nil
	}
	close(done)
	p.wg.Wait()
	pub.Close()
	return nil
}

func (p *Plugin) Health(_ context.Context) plugin.HealthStatus {
	if !p.enabled {
		return plugin.HealthStatus{Status: "ok", Message: "disabled"}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pub == nil {
		return plugin.HealthStatus{Status: "degraded", Message: "not connected"}
	}
	return plugin.HealthStatus{
		Status:  "ok",
		Message: fmt.Sprintf("sent %d, dropped %d", p.sent, p.dropped),
	}
}

func (p *Plugin) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{{Handler: p.relay}}
}

// Topic maps an event topic to its MQTT topic.
func (p *Plugin) Topic(eventTopic string) string {
	t := strings.ReplaceAll(eventTopic, ".", "/")
	if p.prefix == "" {
		return t
	}
	return p.prefix + "/" + t
}

// relay runs on the publisher's goroutine, so it only enqueues.
func (p *Plugin) relay(_ context.Context, event plugin.Event) {
	if !strings.HasPrefix(event.Topic, relayPrefix) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue == nil {
		return
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		p.logger.Warn("event payload not serializable", zap.String("topic", event.Topic), zap.Error(err))
		return
	}

	select {
	case p.queue <- message{topic: p.Topic(event.Topic), payload: payload}:
	default:
		p.dropped++
		p.logger.Warn("mqtt queue full, dropping result", zap.String("topic", event.Topic))
	}
}

func (p *Plugin) deliver(pub Publisher, queue <-chan message, done <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-done:
			return
		case m := <-queue:
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			err := pub.Publish(ctx, m.topic, m.payload)
			cancel()
			if err != nil {
				p.logger.Warn("mqtt publish failed", zap.String("topic", m.topic), zap.Error(err))
				continue
			}
			p.mu.Lock()
			p.sent++
			p.mu.Unlock()
		}
	}
}
