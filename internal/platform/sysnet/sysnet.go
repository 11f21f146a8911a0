// Package sysnet answers connectivity questions on Linux from the kernel
// routing table and the sysfs network class.
package sysnet

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/procfs"

	"github.com/HerbHall/netsense/internal/netinfo"
)

// Compile-time interface guards.
var (
	_ netinfo.ConnectivityService = (*Provider)(nil)
	_ netinfo.CapabilityInspector = (*Provider)(nil)
)

const (
	DefaultProcRoot    = procfs.DefaultMountPoint
	DefaultSysClassNet = "/sys/class/net"

	rtfUp = 0x1
	// ARPHRD_ETHER
	arphrdEther = "1"
)

// cellularPrefixes are interface names used by cellular modem drivers.
var cellularPrefixes = []string{"wwan", "rmnet", "ccmni", "usb"}

// Provider classifies the interface carrying the default route.
type Provider struct {
	procRoot    string
	sysClassNet string
}

// NewProvider creates a Provider. Empty paths use the standard mounts.
func NewProvider(procRoot, sysClassNet string) *Provider {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	if sysClassNet == "" {
		sysClassNet = DefaultSysClassNet
	}
	return &Provider{procRoot: procRoot, sysClassNet: sysClassNet}
}

// DefaultInterface returns the interface of the lowest-metric default
// route that is up, or "" when there is none.
func (p *Provider) DefaultInterface() (string, error) {
	fs, err := procfs.NewFS(p.procRoot)
	if err != nil {
		return "", fmt.Errorf("open procfs: %w", err)
	}
	routes, err := fs.NetRoute()
	if err != nil {
		return "", fmt.Errorf("read routing table: %w", err)
	}

	best, metric := "", uint32(0)
	for _, r := range routes {
		if r.Destination != 0 || r.Mask != 0 || r.Flags&rtfUp == 0 {
			continue
		}
		if best == "" || r.Metric < metric {
			best, metric = r.Iface, r.Metric
		}
	}
	return best, nil
}

// Classify maps an interface to its transport using sysfs.
func (p *Provider) Classify(iface string) (netinfo.Transport, error) {
	dir := filepath.Join(p.sysClassNet, iface)
	if _, err := os.Stat(dir); err != nil {
		return netinfo.TransportNone, fmt.Errorf("interface %s: %w", iface, err)
	}

	if exists(filepath.Join(dir, "wireless")) || exists(filepath.Join(dir, "phy80211")) {
		return netinfo.TransportWifi, nil
	}

	devtype, err := ueventDevtype(filepath.Join(dir, "uevent"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return netinfo.TransportNone, err
	}
	if devtype == "wwan" {
		return netinfo.TransportCellular, nil
	}
	for _, prefix := range cellularPrefixes {
		if strings.HasPrefix(iface, prefix) {
			return netinfo.TransportCellular, nil
		}
	}

	if devtype == "" {
		typ, err := os.ReadFile(filepath.Join(dir, "type"))
		if err == nil && strings.TrimSpace(string(typ)) == arphrdEther {
			return netinfo.TransportEthernet, nil
		}
	}
	return netinfo.TransportOther, nil
}

// ActiveNetworkType classifies the default route interface.
func (p *Provider) ActiveNetworkType(_ context.Context) (netinfo.Transport, error) {
	iface, err := p.DefaultInterface()
	if err != nil {
		return netinfo.TransportNone, err
	}
	if iface == "" {
		return netinfo.TransportNone, nil
	}
	return p.Classify(iface)
}

// ActiveTransports returns the transport set of the default route
// interface, nil when there is no default route.
func (p *Provider) ActiveTransports(ctx context.Context) ([]netinfo.Transport, error) {
	t, err := p.ActiveNetworkType(ctx)
	if err != nil {
		return nil, err
	}
	if t == netinfo.TransportNone {
		return nil, nil
	}
	return []netinfo.Transport{t}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ueventDevtype(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "DEVTYPE="); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", sc.Err()
}
