// Package nl80211 reads the WiFi association of a station interface over
// nl80211. On platforms without nl80211 every read fails.
package nl80211

import (
	"context"
	"errors"
	"fmt"

	"github.com/mdlayher/wifi"

	"github.com/HerbHall/netsense/internal/netinfo"
)

// Compile-time interface guard.
var _ netinfo.WifiService = (*Provider)(nil)

// ErrNoStation is returned when no station-mode interface exists.
var ErrNoStation = errors.New("no wifi station interface")

// client is the part of *wifi.Client the provider uses.
type client interface {
	Interfaces() ([]*wifi.Interface, error)
	StationInfo(ifi *wifi.Interface) ([]*wifi.StationInfo, error)
	BSS(ifi *wifi.Interface) (*wifi.BSS, error)
	Close() error
}

// Provider opens a fresh nl80211 client on every read.
type Provider struct {
	iface string
	open  func() (client, error)
}

// NewProvider creates a Provider. An empty iface selects the first
// station-mode interface.
func NewProvider(iface string) *Provider {
	return &Provider{
		iface: iface,
		open:  func() (client, error) { return wifi.New() },
	}
}

// ConnectionInfo returns the current association. It returns nil info and
// nil error when the station is not associated.
func (p *Provider) ConnectionInfo(ctx context.Context) (*netinfo.WifiInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := p.open()
	if err != nil {
		return nil, fmt.Errorf("open nl80211: %w", err)
	}
	defer c.Close()

	ifi, err := p.station(c)
	if err != nil {
		return nil, err
	}

	stations, err := c.StationInfo(ifi)
	if err != nil {
		return nil, fmt.Errorf("station info %s: %w", ifi.Name, err)
	}
	if len(stations) == 0 {
		return nil, nil
	}

	info := &netinfo.WifiInfo{Interface: ifi.Name, RSSI: stations[0].Signal}
	if bss, err := c.BSS(ifi); err == nil && bss != nil {
		info.SSID = bss.SSID
	}
	return info, nil
}

func (p *Provider) station(c client) (*wifi.Interface, error) {
	ifis, err := c.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list wifi interfaces: %w", err)
	}
	for _, ifi := range ifis {
		if ifi.Type != wifi.InterfaceTypeStation || ifi.Name == "" {
			continue
		}
		if p.iface == "" || ifi.Name == p.iface {
			return ifi, nil
		}
	}
	if p.iface != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoStation, p.iface)
	}
	return nil, ErrNoStation
}
