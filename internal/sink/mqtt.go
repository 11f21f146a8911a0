package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
const disconnectQuiesce = 250

// Options configure the broker connection.
type Options struct {
	Broker         string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
}

// Publisher delivers one payload to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close()
}

type mqttPublisher struct {
	client mqtt.Client
	qos    byte
}

// Dial connects to the broker and returns a Publisher. The client
// reconnects on its own after the first successful connect.
func Dial(opts Options) (Publisher, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true)

	c := mqtt.NewClient(co)
	token := c.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: %w", opts.Broker, errConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Broker, err)
	}
	return &mqttPublisher{client: c, qos: opts.QoS}, nil
}

var errConnectTimeout = errors.New("timed out")

func (p *mqttPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *mqttPublisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}
