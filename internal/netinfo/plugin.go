package netinfo

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/server"
	"github.com/HerbHall/netsense/internal/version"
	"github.com/HerbHall/netsense/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Plugin)(nil)
	_ plugin.HTTPProvider  = (*Plugin)(nil)
	_ plugin.HealthChecker = (*Plugin)(nil)
)

// Plugin exposes the facade as REST routes.
type Plugin struct {
	facade *Facade
	logger *zap.Logger
}

// NewPlugin wraps f.
func NewPlugin(f *Facade) *Plugin {
	return &Plugin{facade: f}
}

func (p *Plugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "netinfo",
		Version:     version.Short(),
		Description: "WiFi signal and mobile network information",
	}
}

func (p *Plugin) Init(_ context.Context, deps plugin.Dependencies) error {
	p.logger = deps.Logger
	p.logger.Info("netinfo module initialized", zap.Strings("missing_services", p.missing()))
	return nil
}

func (p *Plugin) Start(_ context.Context) error { return nil }

func (p *Plugin) Stop(_ context.Context) error { return nil }

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/wifi-signal", Handler: p.handleWifiSignal},
		{Method: "GET", Path: "/mobile-network-type", Handler: p.handleMobileNetworkType},
		{Method: "GET", Path: "/detailed", Handler: p.handleDetailed},
		{Method: "GET", Path: "/generation", Handler: p.handleGeneration},
	}
}

// Health is degraded when any platform service is not configured.
func (p *Plugin) Health(_ context.Context) plugin.HealthStatus {
	if missing := p.missing(); len(missing) > 0 {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: "no provider for " + strings.Join(missing, ", "),
		}
	}
	return plugin.HealthStatus{Status: "ok"}
}

func (p *Plugin) missing() []string {
	svc := p.facade.Services()
	var out []string
	if svc.Wifi == nil {
		out = append(out, "wifi")
	}
	if svc.Connectivity == nil {
		out = append(out, "connectivity")
	}
	if svc.Telephony == nil {
		out = append(out, "telephony")
	}
	return out
}

func (p *Plugin) handleWifiSignal(w http.ResponseWriter, r *http.Request) {
	reading := p.facade.WifiSignalStrength(r.Context())
	if !reading.Available() {
		server.ServiceUnavailable(w, "WiFi signal level unavailable", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, reading)
}

func (p *Plugin) handleMobileNetworkType(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]string{
		"type": string(p.facade.MobileNetworkType(r.Context())),
	})
}

func (p *Plugin) handleDetailed(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, p.facade.DetailedInfo(r.Context()))
}

func (p *Plugin) handleGeneration(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, p.facade.GatedClassify(r.Context()))
}
