// Package config wraps viper behind the plugin.Config interface and loads
// NetSense configuration from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/netsense/pkg/plugin"
)

// EnvPrefix is prepended to environment overrides, e.g. NETSENSE_SERVER_PORT.
const EnvPrefix = "NETSENSE"

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig adapts a *viper.Viper to plugin.Config. A nil viper behaves
// as an empty configuration.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. Passing nil yields an empty config.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }
func (c *ViperConfig) GetStringSlice(key string) []string   { return c.v.GetStringSlice(key) }

// Sub returns the sub-tree rooted at key. Missing keys yield an empty
// config rather than nil.
func (c *ViperConfig) Sub(key string) plugin.Config {
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole tree into target using mapstructure tags.
func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// Viper exposes the underlying instance.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}

// SetDefaults registers a default for every key NetSense reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_connections", 256)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("channel.allowed_origins", []string{})

	v.SetDefault("providers.wifi", "linux")
	v.SetDefault("providers.connectivity", "linux")
	v.SetDefault("providers.telephony", "modemmanager")
	v.SetDefault("providers.static_file", "netsense-snapshot.yaml")
	v.SetDefault("providers.mmcli_path", "mmcli")
	v.SetDefault("providers.modem_index", 0)
	v.SetDefault("providers.wifi_interface", "")
	v.SetDefault("providers.proc_root", "/proc")
	v.SetDefault("providers.sys_class_net", "/sys/class/net")

	v.SetDefault("gateway.url", "http://192.168.12.1")
	v.SetDefault("gateway.model", "auto")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.insecure_skip_verify", true)
	v.SetDefault("gateway.operator_name", "")

	v.SetDefault("permission.mode", "prompt")
	v.SetDefault("permission.prompt_timeout", 60*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "netsense")
	v.SetDefault("mqtt.topic_prefix", "netsense")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)

	v.SetDefault("mdns.enabled", false)
	v.SetDefault("mdns.instance", "")
}

// Load reads the optional YAML file at path, layers NETSENSE_* environment
// variables on top and fills defaults. A missing file is an error only when
// a path was given explicitly.
func Load(path string) (*ViperConfig, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		return New(v), nil
	}

	v.SetConfigName("netsense")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/netsense")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return New(v), nil
}
