// Package discovery advertises the NetSense HTTP API on the local network
// over mDNS so clients can find it without configuration.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/version"
	"github.com/HerbHall/netsense/pkg/plugin"
)

// ServiceType is the advertised DNS-SD service.
const ServiceType = "_netsense._tcp"

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Plugin)(nil)
	_ plugin.HealthChecker = (*Plugin)(nil)
	_ plugin.Validator     = (*Plugin)(nil)
)

type responder interface {
	Shutdown() error
}

// Plugin runs the mDNS responder while enabled.
type Plugin struct {
	logger *zap.Logger

	enabled  bool
	instance string
	port     int
	// host and ips default to the machine hostname and its addresses.
	host string
	ips  []net.IP

	serve func(*mdns.Config) (responder, error)

	mu     sync.Mutex
	server responder
}

// NewPlugin creates the discovery module.
func NewPlugin() *Plugin {
	return &Plugin{
		serve: func(c *mdns.Config) (responder, error) { return mdns.NewServer(c) },
	}
}

func (p *Plugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "discovery",
		Version:     version.Short(),
		Description: "mDNS advertisement of the HTTP API",
	}
}

func (p *Plugin) Init(_ context.Context, deps plugin.Dependencies) error {
	p.logger = deps.Logger
	cfg := deps.Config

	p.enabled = cfg.GetBool("mdns.enabled")
	p.instance = cfg.GetString("mdns.instance")
	if p.instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "netsense"
		}
		p.instance = host
	}

	// A non-numeric port leaves 0, rejected by ValidateConfig when enabled.
	p.port, _ = strconv.Atoi(cfg.GetString("server.port"))
	return nil
}

func (p *Plugin) ValidateConfig() error {
	if p.enabled && (p.port <= 0 || p.port > 65535) {
		return fmt.Errorf("mdns needs a numeric server.port, got %d", p.port)
	}
	return nil
}

// Service builds the advertised service record.
func (p *Plugin) Service() (*mdns.MDNSService, error) {
	txt := []string{"version=" + version.Short(), "path=/api/v1"}
	svc, err := mdns.NewMDNSService(p.instance, ServiceType, "", p.host, p.port, p.ips, txt)
	if err != nil {
		return nil, fmt.Errorf("build mdns service: %w", err)
	}
	return svc, nil
}

func (p *Plugin) Start(_ context.Context) error {
	if !p.enabled {
		return nil
	}
	svc, err := p.Service()
	if err != nil {
		return err
	}
	srv, err := p.serve(&mdns.Config{Zone: svc})
	if err != nil {
		return fmt.Errorf("start mdns responder: %w", err)
	}

	p.mu.Lock()
	p.server = srv
	p.mu.Unlock()

	p.logger.Info("advertising over mDNS",
		zap.String("instance", p.instance),
		zap.String("service", ServiceType),
		zap.Int("port", p.port),
	)
	return nil
}

func (p *Plugin) Stop(_ context.Context) error {
	p.mu.Lock()
	srv := p.server
	p.server = nil
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown()
}

func (p *Plugin) Health(_ context.Context) plugin.HealthStatus {
	if !p.enabled {
		return plugin.HealthStatus{Status: "ok", Message: "disabled"}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.server == nil {
		return plugin.HealthStatus{Status: "degraded", Message: "responder not running"}
	}
	return plugin.HealthStatus{Status: "ok", Message: p.instance + "." + ServiceType}
}
