package permission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/auth"
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

// Plugin exposes pending permission requests and accepts decisions over
// REST.
type Plugin struct {
	manager  *Manager
	verifier *auth.Verifier
	logger   *zap.Logger
}

// NewPlugin wraps m. Decisions require a bearer token signed by verifier
// when it is enabled.
func NewPlugin(m *Manager, verifier *auth.Verifier) *Plugin {
	return &Plugin{manager: m, verifier: verifier}
}

func (p *Plugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "permission",
		Version:     version.Short(),
		Description: "Runtime permission prompts",
	}
}

func (p *Plugin) Init(_ context.Context, deps plugin.Dependencies) error {
	p.logger = deps.Logger
	p.logger.Info("permission module initialized",
		zap.String("mode", string(p.manager.Mode())),
		zap.Bool("auth", p.verifier.Enabled()),
	)
	return nil
}

func (p *Plugin) Start(_ context.Context) error { return nil }

func (p *Plugin) Stop(_ context.Context) error { return nil }

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/requests", Handler: p.handleListRequests},
		{Method: "GET", Path: "/requests/{id}", Handler: p.handleGetRequest},
		{Method: "POST", Path: "/requests/{id}", Handler: p.verifier.Require(p.handleResolve)},
		{Method: "GET", Path: "/state", Handler: p.handleState},
	}
}

func (p *Plugin) Health(_ context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{Status: "ok", Message: "mode " + string(p.manager.Mode())}
}

func (p *Plugin) handleListRequests(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, p.manager.Pending())
}

func (p *Plugin) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	view, ok := p.manager.Get(r.PathValue("id"))
	if !ok {
		server.NotFound(w, "permission request not found", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, view)
}

type resolveRequest struct {
	Granted *bool `json:"granted"`
}

func (p *Plugin) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body resolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body: "+err.Error(), r.URL.Path)
		return
	}
	if body.Granted == nil {
		server.BadRequest(w, "granted is required", r.URL.Path)
		return
	}

	if err := p.manager.Resolve(r.Context(), id, *body.Granted); err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			server.NotFound(w, err.Error(), r.URL.Path)
		case errors.Is(err, ErrAlreadyResolved):
			server.Conflict(w, err.Error(), r.URL.Path)
		default:
			server.InternalError(w, err.Error(), r.URL.Path)
		}
		return
	}

	view, _ := p.manager.Get(id)
	server.WriteJSON(w, http.StatusOK, view)
}

func (p *Plugin) handleState(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]string{
		"mode":                 string(p.manager.Mode()),
		string(ReadPhoneState): string(p.manager.State(ReadPhoneState)),
	})
}
