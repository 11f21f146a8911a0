// Package static serves network info from a YAML snapshot file. The file is
// re-read on every lookup, so editing it changes answers without a restart.
package static

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/netsense/internal/netinfo"
)

// Compile-time interface guards.
var (
	_ netinfo.WifiService         = (*Provider)(nil)
	_ netinfo.ConnectivityService = (*Provider)(nil)
	_ netinfo.CapabilityInspector = (*Provider)(nil)
	_ netinfo.TelephonyService    = (*Provider)(nil)
	_ netinfo.DataNetworkTyper    = (*Provider)(nil)
)

// Lookup names accepted as keys of the snapshot errors map.
const (
	LookupWifi             = "wifi"
	LookupActiveNetwork    = "active_network_type"
	LookupActiveTransports = "active_transports"
	LookupNetworkType      = "network_type"
	LookupDataNetworkType  = "data_network_type"
	LookupOperatorName     = "operator_name"
	LookupRoaming          = "roaming"
)

// unavailable as an injected error message maps to netinfo.ErrServiceUnavailable.
const unavailable = "unavailable"

// Snapshot is the on-disk document.
//
//	wifi: {interface: wlan0, ssid: home, rssi: -61}
//	connectivity: {active: cellular}
//	telephony: {network_type: UMTS, data_network_type: LTE, operator_name: Movistar}
//	errors: {roaming: unavailable}
type Snapshot struct {
	Wifi         *Wifi             `yaml:"wifi"`
	Connectivity Connectivity      `yaml:"connectivity"`
	Telephony    Telephony         `yaml:"telephony"`
	Errors       map[string]string `yaml:"errors"`
}

// Wifi is the association. A missing wifi block means no connection info.
type Wifi struct {
	Interface string `yaml:"interface"`
	SSID      string `yaml:"ssid"`
	RSSI      int    `yaml:"rssi"`
}

// Connectivity describes the active network. Transports defaults to the
// single Active transport.
type Connectivity struct {
	Active     netinfo.Transport   `yaml:"active"`
	Transports []netinfo.Transport `yaml:"transports"`
}

// Telephony holds radio technologies by name or numeric code. An empty
// DataNetworkType falls back to NetworkType.
type Telephony struct {
	NetworkType     string `yaml:"network_type"`
	DataNetworkType string `yaml:"data_network_type"`
	OperatorName    string `yaml:"operator_name"`
	Roaming         bool   `yaml:"roaming"`
}

// Load reads and decodes the snapshot at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &s, nil
}

// injected returns the error configured for lookup, if any.
func (s *Snapshot) injected(lookup string) error {
	msg, ok := s.Errors[lookup]
	if !ok || msg == "" {
		return nil
	}
	if msg == unavailable {
		return fmt.Errorf("%s: %w", lookup, netinfo.ErrServiceUnavailable)
	}
	return fmt.Errorf("%s: %s", lookup, msg)
}

// Provider implements every netinfo service from one snapshot file.
type Provider struct {
	path string
}

// NewProvider creates a Provider reading path.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Path returns the snapshot location.
func (p *Provider) Path() string { return p.path }

func (p *Provider) load(ctx context.Context, lookup string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := Load(p.path)
	if err != nil {
		return nil, err
	}
	if err := s.injected(lookup); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Provider) ConnectionInfo(ctx context.Context) (*netinfo.WifiInfo, error) {
	s, err := p.load(ctx, LookupWifi)
	if err != nil || s.Wifi == nil {
		return nil, err
	}
	return &netinfo.WifiInfo{Interface: s.Wifi.Interface, SSID: s.Wifi.SSID, RSSI: s.Wifi.RSSI}, nil
}

func (p *Provider) ActiveNetworkType(ctx context.Context) (netinfo.Transport, error) {
	s, err := p.load(ctx, LookupActiveNetwork)
	if err != nil {
		return netinfo.TransportNone, err
	}
	if s.Connectivity.Active == "" {
		return netinfo.TransportNone, nil
	}
	return s.Connectivity.Active, nil
}

func (p *Provider) ActiveTransports(ctx context.Context) ([]netinfo.Transport, error) {
	s, err := p.load(ctx, LookupActiveTransports)
	if err != nil {
		return nil, err
	}
	if len(s.Connectivity.Transports) > 0 {
		return s.Connectivity.Transports, nil
	}
	switch s.Connectivity.Active {
	case "", netinfo.TransportNone:
		return nil, nil
	}
	return []netinfo.Transport{s.Connectivity.Active}, nil
}

func (p *Provider) NetworkType(ctx context.Context) (netinfo.RadioTech, error) {
	s, err := p.load(ctx, LookupNetworkType)
	if err != nil {
		return netinfo.RadioUnknown, err
	}
	return parseRadio(s.Telephony.NetworkType)
}

func (p *Provider) DataNetworkType(ctx context.Context) (netinfo.RadioTech, error) {
	s, err := p.load(ctx, LookupDataNetworkType)
	if err != nil {
		return netinfo.RadioUnknown, err
	}
	if s.Telephony.DataNetworkType == "" {
		return parseRadio(s.Telephony.NetworkType)
	}
	return parseRadio(s.Telephony.DataNetworkType)
}

func (p *Provider) OperatorName(ctx context.Context) (string, error) {
	s, err := p.load(ctx, LookupOperatorName)
	if err != nil {
		return "", err
	}
	return s.Telephony.OperatorName, nil
}

func (p *Provider) IsRoaming(ctx context.Context) (bool, error) {
	s, err := p.load(ctx, LookupRoaming)
	if err != nil {
		return false, err
	}
	return s.Telephony.Roaming, nil
}

// ErrBadRadio is returned for radio technology names that do not parse.
var ErrBadRadio = errors.New("unrecognized radio technology")

func parseRadio(s string) (netinfo.RadioTech, error) {
	if s == "" {
		return netinfo.RadioUnknown, nil
	}
	code, ok := netinfo.ParseRadioTech(s)
	if !ok {
		return netinfo.RadioUnknown, fmt.Errorf("%w: %q", ErrBadRadio, s)
	}
	return code, nil
}
