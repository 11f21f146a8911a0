// Package modemmanager reads cellular registration state from
// ModemManager through the mmcli JSON output.
package modemmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/HerbHall/netsense/internal/netinfo"
)

// Compile-time interface guards.
var (
	_ netinfo.ConnectivityService = (*Provider)(nil)
	_ netinfo.TelephonyService    = (*Provider)(nil)
	_ netinfo.DataNetworkTyper    = (*Provider)(nil)
)

// Runner executes mmcli and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// accessTechnologies maps mmcli access technology names to radio codes.
var accessTechnologies = map[string]netinfo.RadioTech{
	"gsm":         netinfo.RadioGSM,
	"gsm-compact": netinfo.RadioGSM,
	"gprs":        netinfo.RadioGPRS,
	"edge":        netinfo.RadioEDGE,
	"umts":        netinfo.RadioUMTS,
	"hsdpa":       netinfo.RadioHSDPA,
	"hsupa":       netinfo.RadioHSUPA,
	"hspa":        netinfo.RadioHSPA,
	"hspa-plus":   netinfo.RadioHSPAP,
	"1xrtt":       netinfo.Radio1xRTT,
	"evdo0":       netinfo.RadioEVDO0,
	"evdoa":       netinfo.RadioEVDOA,
	"evdob":       netinfo.RadioEVDOB,
	"lte":         netinfo.RadioLTE,
	"lte-cat-m":   netinfo.RadioLTE,
	"lte-nb-iot":  netinfo.RadioLTE,
	"5gnr":        netinfo.RadioNR,
}

// rank orders radio codes when a modem reports several at once.
var rank = map[netinfo.RadioTech]int{
	netinfo.RadioGSM:   1,
	netinfo.RadioGPRS:  2,
	netinfo.RadioEDGE:  3,
	netinfo.Radio1xRTT: 4,
	netinfo.RadioUMTS:  5,
	netinfo.RadioEVDO0: 6,
	netinfo.RadioEVDOA: 7,
	netinfo.RadioEVDOB: 8,
	netinfo.RadioHSDPA: 9,
	netinfo.RadioHSUPA: 10,
	netinfo.RadioHSPA:  11,
	netinfo.RadioHSPAP: 12,
	netinfo.RadioLTE:   13,
	netinfo.RadioNR:    14,
}

// Modem is the subset of `mmcli -m N -J` output NetSense reads.
type Modem struct {
	Generic struct {
		AccessTechnologies []string `json:"access-technologies"`
		State              string   `json:"state"`
	} `json:"generic"`
	ThreeGPP struct {
		OperatorName      string `json:"operator-name"`
		RegistrationState string `json:"registration-state"`
	} `json:"3gpp"`
}

type mmcliOutput struct {
	Modem *Modem `json:"modem"`
}

// ParseModem decodes mmcli JSON output. mmcli prints "--" for empty
// values; those are normalized to "".
func ParseModem(data []byte) (*Modem, error) {
	var out mmcliOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse mmcli output: %w", err)
	}
	if out.Modem == nil {
		return nil, errors.New("mmcli output has no modem object")
	}
	m := out.Modem
	m.Generic.State = clean(m.Generic.State)
	m.ThreeGPP.OperatorName = clean(m.ThreeGPP.OperatorName)
	m.ThreeGPP.RegistrationState = clean(m.ThreeGPP.RegistrationState)
	return m, nil
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "--" {
		return ""
	}
	return s
}

// Attached reports whether the modem is registered or has a bearer up.
func (m *Modem) Attached() bool {
	switch m.Generic.State {
	case "registered", "connecting", "connected", "disconnecting":
		return true
	}
	return false
}

// FirstTechnology maps the first reported access technology. A modem
// reporting none, e.g. while searching, is RadioUnknown.
func (m *Modem) FirstTechnology() netinfo.RadioTech {
	for _, name := range m.Generic.AccessTechnologies {
		if name = clean(name); name != "" {
			return techCode(name)
		}
	}
	return netinfo.RadioUnknown
}

// BestTechnology maps the highest-generation reported access technology,
// RadioUnknown when none is reported.
func (m *Modem) BestTechnology() netinfo.RadioTech {
	best := netinfo.RadioUnknown
	for _, name := range m.Generic.AccessTechnologies {
		if name = clean(name); name == "" {
			continue
		}
		if code := techCode(name); rank[code] > rank[best] {
			best = code
		}
	}
	return best
}

func techCode(name string) netinfo.RadioTech {
	if code, ok := accessTechnologies[strings.ToLower(name)]; ok {
		return code
	}
	return netinfo.RadioUnknown
}

// Provider answers connectivity and telephony questions by running mmcli
// on every call.
type Provider struct {
	path  string
	index int
	run   Runner
}

// NewProvider creates a Provider for modem index using the mmcli binary at
// path. A nil run uses ExecRunner.
func NewProvider(path string, index int, run Runner) *Provider {
	if path == "" {
		path = "mmcli"
	}
	if run == nil {
		run = ExecRunner
	}
	return &Provider{path: path, index: index, run: run}
}

// Modem reads the current modem state.
func (p *Provider) Modem(ctx context.Context) (*Modem, error) {
	out, err := p.run(ctx, p.path, "-m", strconv.Itoa(p.index), "-J")
	if err != nil {
		return nil, fmt.Errorf("query modem %d: %w", p.index, err)
	}
	return ParseModem(out)
}

// ActiveNetworkType is cellular while the modem is attached.
func (p *Provider) ActiveNetworkType(ctx context.Context) (netinfo.Transport, error) {
	m, err := p.Modem(ctx)
	if err != nil {
		return netinfo.TransportNone, err
	}
	if m.Attached() {
		return netinfo.TransportCellular, nil
	}
	return netinfo.TransportNone, nil
}

// NetworkType returns the first reported access technology.
func (p *Provider) NetworkType(ctx context.Context) (netinfo.RadioTech, error) {
	m, err := p.Modem(ctx)
	if err != nil {
		return netinfo.RadioUnknown, err
	}
	return m.FirstTechnology(), nil
}

// DataNetworkType returns the best access technology the modem reports.
func (p *Provider) DataNetworkType(ctx context.Context) (netinfo.RadioTech, error) {
	m, err := p.Modem(ctx)
	if err != nil {
		return netinfo.RadioUnknown, err
	}
	return m.BestTechnology(), nil
}

// OperatorName returns the 3GPP operator name, "" when unknown.
func (p *Provider) OperatorName(ctx context.Context) (string, error) {
	m, err := p.Modem(ctx)
	if err != nil {
		return "", err
	}
	return m.ThreeGPP.OperatorName, nil
}

// IsRoaming reports a roaming registration.
func (p *Provider) IsRoaming(ctx context.Context) (bool, error) {
	m, err := p.Modem(ctx)
	if err != nil {
		return false, err
	}
	return m.ThreeGPP.RegistrationState == "roaming", nil
}
