package netinfo

import (
	"context"
	"fmt"

	"github.com/HerbHall/netsense/internal/channel"
)

// Channel names served by the facade.
const (
	ChannelWifi    = "netsense/wifi"
	ChannelWifiAlt = "netsense/wifi_alt"
	ChannelNetwork = "netsense/network"
)

// CodeUnavailable is the channel error code for an absent WiFi reading.
const CodeUnavailable = "UNAVAILABLE"

// RegisterChannels binds the WiFi and network channels to f. The alternate
// WiFi channel shares the primary handler.
func RegisterChannels(reg *channel.Registry, f *Facade) error {
	for name, h := range map[string]channel.Handler{
		ChannelWifi:    f.handleWifi,
		ChannelWifiAlt: f.handleWifi,
		ChannelNetwork: f.handleNetwork,
	} {
		if err := reg.Register(name, h); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

func (f *Facade) handleWifi(ctx context.Context, call channel.MethodCall) channel.Reply {
	switch call.Method {
	case "getWifiSignalStrength":
		dbm, ok := f.WifiSignalStrength(ctx).Value()
		if !ok {
			return channel.Error(CodeUnavailable, "WiFi signal level unavailable", nil)
		}
		return channel.Success(dbm)
	default:
		return channel.NotImplemented()
	}
}

func (f *Facade) handleNetwork(ctx context.Context, call channel.MethodCall) channel.Reply {
	switch call.Method {
	case "getMobileNetworkType":
		return channel.Success(string(f.MobileNetworkType(ctx)))
	case "getDetailedNetworkInfo":
		return channel.Success(f.DetailedInfo(ctx))
	default:
		return channel.NotImplemented()
	}
}
