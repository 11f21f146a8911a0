package netinfo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/permission"
	"github.com/HerbHall/netsense/pkg/models"
	"github.com/HerbHall/netsense/pkg/plugin"
)

// Event topics published after each read.
const (
	TopicWifiRead             = "netinfo.wifi.read"
	TopicGenerationClassified = "netinfo.generation.classified"
	TopicDetailRead           = "netinfo.detail.read"
)

// PermissionGate is the permission subsystem as seen by the facade.
type PermissionGate interface {
	Granted(perm permission.Name) bool
	Await(ctx context.Context, perm permission.Name) (bool, error)
}

// Facade reads network info from the injected services. It holds no
// mutable state and is safe for concurrent use.
type Facade struct {
	svc    Services
	gate   PermissionGate
	bus    plugin.EventBus
	logger *zap.Logger
}

// New creates a Facade. gate and bus may be nil. A nil gate treats the
// telephony permission as granted.
func New(svc Services, gate PermissionGate, bus plugin.EventBus, logger *zap.Logger) *Facade {
	return &Facade{
		svc:    svc,
		gate:   gate,
		bus:    bus,
		logger: logger,
	}
}

// Services returns the injected service handles.
func (f *Facade) Services() Services {
	return f.svc
}

// WifiSignalStrength returns the WiFi signal level in dBm, or an absent
// reading when no connection info can be obtained.
func (f *Facade) WifiSignalStrength(ctx context.Context) models.SignalReading {
	var reading models.SignalReading
	err := guard(func() error {
		if f.svc.Wifi == nil {
			return ErrServiceUnavailable
		}
		info, err := f.svc.Wifi.ConnectionInfo(ctx)
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("no wifi connection info: %w", ErrServiceUnavailable)
		}
		reading = models.NewSignalReading(info.RSSI)
		return nil
	})
	if err != nil {
		f.logger.Debug("wifi signal unavailable", zap.Error(err))
		reading = models.SignalReading{}
	}

	f.publish(ctx, TopicWifiRead, reading)
	return reading
}

// ClassifyGeneration classifies the active mobile network without any
// permission check. Failures anywhere in the path yield Mobile.
func (f *Facade) ClassifyGeneration(ctx context.Context) GenerationResult {
	res := f.classify(ctx)
	f.publish(ctx, TopicGenerationClassified, res)
	return res
}

// GatedClassify checks the telephony permission first. When it is not
// granted a request is filed and the call waits for the decision: granted
// classifies, denied yields Mobile.
func (f *Facade) GatedClassify(ctx context.Context) GenerationResult {
	if f.gate == nil || f.gate.Granted(permission.ReadPhoneState) {
		return f.ClassifyGeneration(ctx)
	}

	granted, err := f.gate.Await(ctx, permission.ReadPhoneState)
	if err != nil || !granted {
		if err != nil {
			f.logger.Debug("stopped waiting for permission", zap.Error(err))
		}
		res := fallback(ReasonPermissionDenied)
		f.publish(ctx, TopicGenerationClassified, res)
		return res
	}
	return f.ClassifyGeneration(ctx)
}

// MobileNetworkType is the permission-gated generation string.
func (f *Facade) MobileNetworkType(ctx context.Context) models.NetworkGeneration {
	return f.GatedClassify(ctx).Generation
}

// DetailedInfo returns the generation, subtype, operator name and roaming
// flag. Any failure yields the all-default record.
func (f *Facade) DetailedInfo(ctx context.Context) models.DetailedNetworkInfo {
	var info models.DetailedNetworkInfo
	err := guard(func() error {
		tel := f.svc.Telephony
		if tel == nil {
			return ErrServiceUnavailable
		}

		gen := f.classify(ctx).Generation

		code, err := f.radioTech(ctx)
		if err != nil {
			return fmt.Errorf("radio tech: %w", err)
		}
		operator, err := tel.OperatorName(ctx)
		if err != nil {
			return fmt.Errorf("operator name: %w", err)
		}
		if operator == "" {
			operator = "Unknown"
		}
		roaming, err := tel.IsRoaming(ctx)
		if err != nil {
			return fmt.Errorf("roaming: %w", err)
		}

		subtype := SubtypeName(code)
		info = models.DetailedNetworkInfo{
			Type:         gen,
			Subtype:      &subtype,
			OperatorName: &operator,
			IsRoaming:    roaming,
		}
		return nil
	})
	if err != nil {
		f.logger.Debug("detailed network info unavailable", zap.Error(err))
		info = models.DefaultDetailedNetworkInfo()
	}

	f.publish(ctx, TopicDetailRead, info)
	return info
}

func (f *Facade) classify(ctx context.Context) GenerationResult {
	var res GenerationResult
	err := guard(func() error {
		cellular, err := f.onCellular(ctx)
		if err != nil {
			return fmt.Errorf("transport check: %w", err)
		}
		if !cellular {
			res = GenerationResult{Generation: models.GenerationUnknown, Reason: ReasonNotCellular}
			return nil
		}

		code, err := f.radioTech(ctx)
		if err != nil {
			return fmt.Errorf("radio tech: %w", err)
		}
		gen, known := Classify(code)
		res = GenerationResult{Generation: gen, Reason: ReasonNone, RadioTech: &code}
		if !known {
			res.Reason = ReasonUnrecognizedCode
		}
		return nil
	})
	if err != nil {
		f.logger.Debug("generation classification failed", zap.Error(err))
		return fallback(ReasonLookupFailed)
	}
	return res
}

// onCellular prefers the capability set of the active network and falls
// back to the legacy active network type.
func (f *Facade) onCellular(ctx context.Context) (bool, error) {
	conn := f.svc.Connectivity
	if conn == nil {
		return false, ErrServiceUnavailable
	}
	if ci, ok := conn.(CapabilityInspector); ok {
		transports, err := ci.ActiveTransports(ctx)
		if err != nil {
			return false, err
		}
		return slices.Contains(transports, TransportCellular), nil
	}
	t, err := conn.ActiveNetworkType(ctx)
	if err != nil {
		return false, err
	}
	return t == TransportCellular, nil
}

// radioTech prefers the data-bearer accessor and falls back to the legacy one.
func (f *Facade) radioTech(ctx context.Context) (RadioTech, error) {
	tel := f.svc.Telephony
	if tel == nil {
		return RadioUnknown, ErrServiceUnavailable
	}
	if dt, ok := tel.(DataNetworkTyper); ok {
		return dt.DataNetworkType(ctx)
	}
	return tel.NetworkType(ctx)
}

func (f *Facade) publish(ctx context.Context, topic string, payload any) {
	if f.bus == nil {
		return
	}
	_ = f.bus.Publish(context.WithoutCancel(ctx), plugin.Event{
		Topic:     topic,
		Source:    "netinfo",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()
	return fn()
}
