package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/config"
	"github.com/HerbHall/netsense/internal/event"
	"github.com/HerbHall/netsense/pkg/plugin"
)

type published struct {
	topic   string
	payload string
}

type fakePublisher struct {
	mu     sync.Mutex
	msgs   []published
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, payload: string(payload)})
	return nil
}

func (f *fakePublisher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakePublisher) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func newSink(t *testing.T, overrides map[string]any, pub *fakePublisher) (*Plugin, *event.Bus) {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}

	bus := event.NewBus(zap.NewNop())
	p := NewPlugin()
	p.dial = func(opts Options) (Publisher, error) {
		if pub == nil {
			return nil, errors.New("connection refused")
		}
		return pub, nil
	}
	require.NoError(t, p.Init(context.Background(), plugin.Dependencies{
		Config: config.New(v),
		Logger: zap.NewNop(),
		Bus:    bus,
	}))
	for _, sub := range p.Subscriptions() {
		bus.SubscribeAll(sub.Handler)
	}
	return p, bus
}

func publish(bus *event.Bus, topic string, payload any) {
	_ = bus.Publish(context.Background(), plugin.Event{Topic: topic, Source: "netinfo", Timestamp: time.Now(), Payload: payload})
}

func TestRelaysNetinfoEvents(t *testing.T) {
	pub := &fakePublisher{}
	p, bus := newSink(t, map[string]any{"mqtt.enabled": true, "mqtt.topic_prefix": "home/phone/"}, pub)
	require.NoError(t, p.ValidateConfig())
	require.NoError(t, p.Start(context.Background()))

	publish(bus, "netinfo.generation.classified", map[string]string{"generation": "4G"})
	publish(bus, "permission.requested", map[string]string{"id": "x"})
	publish(bus, "netinfo.wifi.read", map[string]int{"dbm": -61})

	require.Eventually(t, func() bool { return len(pub.messages()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []published{
		{topic: "home/phone/netinfo/generation/classified", payload: `{"generation":"4G"}`},
		{topic: "home/phone/netinfo/wifi/read", payload: `{"dbm":-61}`},
	}, pub.messages())

	assert.Equal(t, "ok", p.Health(context.Background()).Status)
	require.NoError(t, p.Stop(context.Background()))
	assert.True(t, pub.closed)

	publish(bus, "netinfo.detail.read", map[string]bool{"isRoaming": false})
	assert.Len(t, pub.messages(), 2, "nothing is relayed after stop")
}

func TestDisabledSinkIsIdle(t *testing.T) {
	p, bus := newSink(t, nil, nil)
	require.NoError(t, p.ValidateConfig())
	require.NoError(t, p.Start(context.Background()))

	publish(bus, "netinfo.wifi.read", nil)

	h := p.Health(context.Background())
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "disabled", h.Message)
	require.NoError(t, p.Stop(context.Background()))
}

func TestStartFailsWhenBrokerUnreachable(t *testing.T) {
	p, _ := newSink(t, map[string]any{"mqtt.enabled": true}, nil)
	err := p.Start(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, "degraded", p.Health(context.Background()).Status)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{name: "defaults enabled", overrides: map[string]any{"mqtt.enabled": true}},
		{name: "no broker", overrides: map[string]any{"mqtt.enabled": true, "mqtt.broker": ""}, wantErr: "mqtt.broker"},
		{name: "bad qos", overrides: map[string]any{"mqtt.enabled": true, "mqtt.qos": 3}, wantErr: "mqtt.qos"},
		{name: "disabled ignores qos", overrides: map[string]any{"mqtt.qos": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newSink(t, tt.overrides, &fakePublisher{})
			err := p.ValidateConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTopic(t *testing.T) {
	p := NewPlugin()
	assert.Equal(t, "netinfo/wifi/read", p.Topic("netinfo.wifi.read"))
	p.prefix = "netsense"
	assert.Equal(t, "netsense/netinfo/detail/read", p.Topic("netinfo.detail.read"))
}

func TestPublishErrorsAreNotCounted(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	p, bus := newSink(t, map[string]any{"mqtt.enabled": true}, pub)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop(context.Background()) //nolint:errcheck // test cleanup

	publish(bus, "netinfo.wifi.read", nil)
	assert.Never(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.sent > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}
