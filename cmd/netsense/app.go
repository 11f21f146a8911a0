package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/netinfo"
	"github.com/HerbHall/netsense/internal/permission"
	"github.com/HerbHall/netsense/internal/platform"
	"github.com/HerbHall/netsense/pkg/plugin"
)

// app holds the pieces shared by serve and query.
type app struct {
	perms    *permission.Manager
	platform *platform.Set
	facade   *netinfo.Facade
}

// newApp selects the platform providers and wires the permission manager
// and facade. bus may be nil.
func newApp(cfg plugin.Config, mode permission.Mode, bus plugin.EventBus, logger *zap.Logger) (*app, error) {
	set, err := platform.Build(cfg, logger.Named("platform"))
	if err != nil {
		return nil, fmt.Errorf("build platform providers: %w", err)
	}

	perms := permission.NewManager(permission.Options{
		Mode:          mode,
		PromptTimeout: cfg.GetDuration("permission.prompt_timeout"),
	}, bus, logger.Named("permission"))

	return &app{
		perms:    perms,
		platform: set,
		facade:   netinfo.New(set.Services, perms, bus, logger.Named("netinfo")),
	}, nil
}
