// Package netinfo is the device network-info facade: WiFi signal strength,
// mobile generation classification and the detailed mobile network record,
// read from injected platform services with fixed fallbacks on failure.
package netinfo

import (
	"context"
	"errors"
)

// ErrServiceUnavailable is returned by services that cannot be reached.
var ErrServiceUnavailable = errors.New("service unavailable")

// WifiInfo is the current WiFi association as reported by the platform.
type WifiInfo struct {
	Interface string
	SSID      string
	// RSSI is the received signal level in dBm.
	RSSI int
}

// WifiService reads the current WiFi connection. A nil info with a nil
// error means no connection info could be obtained.
type WifiService interface {
	ConnectionInfo(ctx context.Context) (*WifiInfo, error)
}

// Transport is the medium an active network is delivered over.
type Transport string

const (
	TransportNone     Transport = "none"
	TransportCellular Transport = "cellular"
	TransportWifi     Transport = "wifi"
	TransportEthernet Transport = "ethernet"
	TransportOther    Transport = "other"
)

// ConnectivityService answers the legacy active-network-type question.
// Every connectivity provider implements it.
type ConnectivityService interface {
	// ActiveNetworkType returns the transport of the active network, or
	// TransportNone when there is none.
	ActiveNetworkType(ctx context.Context) (Transport, error)
}

// CapabilityInspector is implemented by connectivity providers that can
// report the transport capability set of the active network. The facade
// prefers it over ActiveNetworkType.
type CapabilityInspector interface {
	// ActiveTransports returns the transports of the active network. A nil
	// slice means there is no active network.
	ActiveTransports(ctx context.Context) ([]Transport, error)
}

// TelephonyService reads cellular registration details.
type TelephonyService interface {
	// NetworkType is the legacy radio-technology accessor.
	NetworkType(ctx context.Context) (RadioTech, error)
	OperatorName(ctx context.Context) (string, error)
	IsRoaming(ctx context.Context) (bool, error)
}

// DataNetworkTyper is implemented by telephony providers with a data-bearer
// specific radio-technology accessor. The facade prefers it over NetworkType.
type DataNetworkTyper interface {
	DataNetworkType(ctx context.Context) (RadioTech, error)
}

// Services bundles the platform handles injected into the facade. A nil
// field behaves as a service that always fails with ErrServiceUnavailable.
type Services struct {
	Wifi         WifiService
	Connectivity ConnectivityService
	Telephony    TelephonyService
}
