// Package plugin defines the contract between the NetSense core and its modules.
package plugin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Route represents an HTTP route exposed by a plugin. Path is relative to
// /api/v1/{plugin}.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// PluginInfo describes a registered module.
type PluginInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Config is the read-only configuration view handed to each module.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}

// Dependencies are injected into every plugin at Init.
type Dependencies struct {
	Config Config
	Logger *zap.Logger
	Bus    EventBus
}

// Plugin defines the interface that all NetSense modules must implement.
type Plugin interface {
	// Info returns the module's identity.
	Info() PluginInfo

	// Init wires the module to its configuration, logger and event bus.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins any listeners the module owns.
	Start(ctx context.Context) error

	// Stop releases module resources.
	Stop(ctx context.Context) error
}
