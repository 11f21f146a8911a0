// Package platform builds the netinfo service handles named in the
// providers.* configuration.
package platform

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/netinfo"
	"github.com/HerbHall/netsense/internal/platform/gateway"
	"github.com/HerbHall/netsense/internal/platform/modemmanager"
	"github.com/HerbHall/netsense/internal/platform/nl80211"
	"github.com/HerbHall/netsense/internal/platform/static"
	"github.com/HerbHall/netsense/internal/platform/sysnet"
	"github.com/HerbHall/netsense/pkg/plugin"
)

// Provider names accepted by providers.wifi, providers.connectivity and
// providers.telephony.
const (
	Linux        = "linux"
	ModemManager = "modemmanager"
	Gateway      = "gateway"
	Static       = "static"
	None         = "none"
)

// Set is the result of Build.
type Set struct {
	Services netinfo.Services
	// Gateway is non-nil when any service is served by a gateway.
	Gateway *gateway.Provider
	// Names records the provider chosen for each service.
	Names map[string]string
}

type builder struct {
	cfg    plugin.Config
	logger *zap.Logger

	gw     *gateway.Provider
	mm     *modemmanager.Provider
	static *static.Provider
}

// Build creates the configured providers. Services sharing a provider
// name share one instance. "none" leaves the service nil.
func Build(cfg plugin.Config, logger *zap.Logger) (*Set, error) {
	b := &builder{cfg: cfg, logger: logger}
	set := &Set{Names: map[string]string{
		"wifi":         cfg.GetString("providers.wifi"),
		"connectivity": cfg.GetString("providers.connectivity"),
		"telephony":    cfg.GetString("providers.telephony"),
	}}

	wifi, err := b.wifi(set.Names["wifi"])
	if err != nil {
		return nil, err
	}
	conn, err := b.connectivity(set.Names["connectivity"])
	if err != nil {
		return nil, err
	}
	tel, err := b.telephony(set.Names["telephony"])
	if err != nil {
		return nil, err
	}

	set.Services = netinfo.Services{Wifi: wifi, Connectivity: conn, Telephony: tel}
	set.Gateway = b.gw
	logger.Info("platform providers selected",
		zap.String("wifi", set.Names["wifi"]),
		zap.String("connectivity", set.Names["connectivity"]),
		zap.String("telephony", set.Names["telephony"]),
	)
	return set, nil
}

func (b *builder) wifi(name string) (netinfo.WifiService, error) {
	switch name {
	case Linux:
		return nl80211.NewProvider(b.cfg.GetString("providers.wifi_interface")), nil
	case Static:
		return b.staticProvider(), nil
	case None, "":
		return nil, nil
	}
	return nil, unknown("wifi", name)
}

func (b *builder) connectivity(name string) (netinfo.ConnectivityService, error) {
	switch name {
	case Linux:
		return sysnet.NewProvider(b.cfg.GetString("providers.proc_root"), b.cfg.GetString("providers.sys_class_net")), nil
	case ModemManager:
		return b.modemManager(), nil
	case Gateway:
		return b.gateway()
	case Static:
		return b.staticProvider(), nil
	case None, "":
		return nil, nil
	}
	return nil, unknown("connectivity", name)
}

func (b *builder) telephony(name string) (netinfo.TelephonyService, error) {
	switch name {
	case ModemManager:
		return b.modemManager(), nil
	case Gateway:
		return b.gateway()
	case Static:
		return b.staticProvider(), nil
	case None, "":
		return nil, nil
	}
	return nil, unknown("telephony", name)
}

func (b *builder) modemManager() *modemmanager.Provider {
	if b.mm == nil {
		b.mm = modemmanager.NewProvider(
			b.cfg.GetString("providers.mmcli_path"),
			b.cfg.GetInt("providers.modem_index"),
			modemmanager.ExecRunner,
		)
	}
	return b.mm
}

func (b *builder) staticProvider() *static.Provider {
	if b.static == nil {
		b.static = static.NewProvider(b.cfg.GetString("providers.static_file"))
	}
	return b.static
}

func (b *builder) gateway() (*gateway.Provider, error) {
	if b.gw != nil {
		return b.gw, nil
	}
	gcfg := gateway.DefaultConfig()
	if b.cfg.IsSet("gateway.url") {
		gcfg.URL = b.cfg.GetString("gateway.url")
	}
	if b.cfg.IsSet("gateway.model") {
		gcfg.Model = b.cfg.GetString("gateway.model")
	}
	if b.cfg.IsSet("gateway.timeout") {
		gcfg.Timeout = b.cfg.GetDuration("gateway.timeout")
	}
	if b.cfg.IsSet("gateway.insecure_skip_verify") {
		gcfg.InsecureSkipVerify = b.cfg.GetBool("gateway.insecure_skip_verify")
	}
	gcfg.OperatorName = b.cfg.GetString("gateway.operator_name")

	p, err := gateway.NewProvider(gcfg, b.logger.Named("gateway"))
	if err != nil {
		return nil, fmt.Errorf("gateway provider: %w", err)
	}
	b.gw = p
	return p, nil
}

func unknown(service, name string) error {
	return fmt.Errorf("unknown %s provider %q", service, name)
}
