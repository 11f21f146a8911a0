package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/server"
	"github.com/HerbHall/netsense/internal/version"
	"github.com/HerbHall/netsense/pkg/plugin"
)

// pushPrefix selects the bus events relayed to WebSocket clients.
const pushPrefix = "permission."

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Plugin)(nil)
	_ plugin.HTTPProvider    = (*Plugin)(nil)
	_ plugin.HealthChecker   = (*Plugin)(nil)
	_ plugin.EventSubscriber = (*Plugin)(nil)
)

// Plugin serves the channel registry over HTTP and WebSocket.
type Plugin struct {
	registry *Registry
	hub      *Hub
	logger   *zap.Logger
}

// NewPlugin creates the channel transport module for registry.
func NewPlugin(registry *Registry) *Plugin {
	return &Plugin{registry: registry}
}

func (p *Plugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "channel",
		Version:     version.Short(),
		Description: "Method channels over HTTP and WebSocket",
	}
}

func (p *Plugin) Init(_ context.Context, deps plugin.Dependencies) error {
	p.logger = deps.Logger
	p.hub = NewHub(p.registry, deps.Config.GetStringSlice("channel.allowed_origins"), p.logger)
	p.logger.Info("channel module initialized", zap.Strings("channels", p.registry.Channels()))
	return nil
}

func (p *Plugin) Start(_ context.Context) error { return nil }

func (p *Plugin) Stop(_ context.Context) error { return nil }

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: p.handleList},
		{Method: "GET", Path: "/ws", Handler: p.hub.ServeHTTP},
		{Method: "POST", Path: "/{name...}", Handler: p.handleInvoke},
	}
}

func (p *Plugin) Health(_ context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{Status: "ok"}
}

func (p *Plugin) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{{Handler: p.relay}}
}

// relay runs on the publisher's goroutine, so it only queues.
func (p *Plugin) relay(_ context.Context, event plugin.Event) {
	if !strings.HasPrefix(event.Topic, pushPrefix) || p.hub == nil {
		return
	}
	p.hub.Broadcast(event.Topic, event.Payload)
}

func (p *Plugin) handleList(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p.registry.Channels())
}

// handleInvoke runs one method call. Channel-level failures travel inside
// the reply envelope, so the status is 200 whenever the body parses.
func (p *Plugin) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var call MethodCall
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&call); err != nil {
		server.BadRequest(w, "invalid method call: "+err.Error(), r.URL.Path)
		return
	}
	if call.Method == "" {
		server.BadRequest(w, "method is required", r.URL.Path)
		return
	}

	reply := p.registry.Invoke(r.Context(), name, call)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply.Envelope()); err != nil {
		p.logger.Debug("write reply", zap.String("channel", name), zap.Error(err))
	}
}
