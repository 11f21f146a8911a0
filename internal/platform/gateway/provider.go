package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/netinfo"
)

// Compile-time interface guards.
var (
	_ netinfo.ConnectivityService = (*Provider)(nil)
	_ netinfo.TelephonyService    = (*Provider)(nil)
)

// Provider serves the connectivity and telephony handles from a gateway.
// A gateway uplink is always cellular, so only the legacy connectivity
// check is offered.
type Provider struct {
	cfg    Config
	model  Model
	logger *zap.Logger

	mu     sync.Mutex
	client Client
	newFn  func(ctx context.Context) (Client, error)
}

// NewProvider creates a Provider. With ModelAuto the gateway family is
// detected on the first read and remembered once detection succeeds.
func NewProvider(cfg Config, logger *zap.Logger) (*Provider, error) {
	model, err := ParseModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	hc := NewHTTPClient(cfg)

	p := &Provider{cfg: cfg, model: model, logger: logger}
	if model == ModelAuto {
		p.newFn = func(ctx context.Context) (Client, error) {
			return Detect(ctx, cfg.URL, hc)
		}
	} else {
		c, err := NewClient(model, cfg.URL, hc)
		if err != nil {
			return nil, err
		}
		p.client = c
	}
	return p, nil
}

// Status reads the current gateway status.
func (p *Provider) Status(ctx context.Context) (*Status, error) {
	c, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return c.Status(ctx)
}

// Signal returns the raw radio metrics.
func (p *Provider) Signal(ctx context.Context) (SignalMetrics, error) {
	s, err := p.Status(ctx)
	if err != nil {
		return SignalMetrics{}, err
	}
	return s.Signal, nil
}

// ActiveNetworkType is cellular whenever the gateway answers.
func (p *Provider) ActiveNetworkType(ctx context.Context) (netinfo.Transport, error) {
	if _, err := p.Status(ctx); err != nil {
		return netinfo.TransportNone, err
	}
	return netinfo.TransportCellular, nil
}

// NetworkType is NR while 5G stats are present, otherwise LTE.
func (p *Provider) NetworkType(ctx context.Context) (netinfo.RadioTech, error) {
	s, err := p.Status(ctx)
	if err != nil {
		return netinfo.RadioUnknown, err
	}
	if s.Technology == Technology5G {
		return netinfo.RadioNR, nil
	}
	return netinfo.RadioLTE, nil
}

// OperatorName returns the configured operator.
func (p *Provider) OperatorName(_ context.Context) (string, error) {
	return p.cfg.OperatorName, nil
}

// IsRoaming is always false; a fixed gateway is registered on its home
// network.
func (p *Provider) IsRoaming(_ context.Context) (bool, error) {
	return false, nil
}

func (p *Provider) resolve(ctx context.Context) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	c, err := p.newFn(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("gateway detected", zap.String("model", string(c.Model())), zap.String("url", p.cfg.URL))
	p.client = c
	return c, nil
}
