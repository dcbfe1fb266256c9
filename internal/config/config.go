/*
Layered configuration for gatekeeperd: defaults, then an optional YAML
file, then environment variables, generalizing metrics-collector/config's
flat env-with-fallback shape (spec §6's enumerated keys) the way
sandrolain-events-bridge layers its own connector config.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full set of tunables enumerated in spec §6, plus the
// ambient keys every deployment needs (store DSN, listen address, the
// optional MQTT side-channel).
type Config struct {
	Cache struct {
		ConnectTTLMs int `koanf:"connect_ttl_ms" default:"60000" validate:"min=0"`
		DenyTTLMs    int `koanf:"deny_ttl_ms" default:"5000" validate:"min=0"`
		Capacity     int `koanf:"capacity" default:"10000" validate:"min=1"`
	} `koanf:"cache"`

	Logger struct {
		QueueCapacity int `koanf:"queue_capacity" default:"4096" validate:"min=1"`
		BatchSize     int `koanf:"batch_size" default:"100" validate:"min=1"`
	} `koanf:"logger"`

	Endpoint struct {
		DeadlineMs int `koanf:"deadline_ms" default:"5000" validate:"min=1"`
	} `koanf:"endpoint"`

	Password struct {
		HashCost int `koanf:"hash_cost" default:"12" validate:"min=10,max=31"`
	} `koanf:"password"`

	AdminPrefix string `koanf:"admin_prefix" default:"admin/" validate:"required"`

	Store struct {
		DSN string `koanf:"dsn" validate:"required"`
	} `koanf:"store"`

	HTTP struct {
		ListenAddr string `koanf:"listen_addr" default:":8080" validate:"required"`
	} `koanf:"http"`

	MQTT struct {
		BrokerURL string `koanf:"broker_url"`
		ClientID  string `koanf:"client_id" default:"gatekeeperd-metrics"`
		Topic     string `koanf:"topic" default:"metrics/gatekeeperd"`
	} `koanf:"mqtt"`
}

// Load builds a Config from defaults, an optional YAML file at path (skipped
// if empty or missing), and environment variables prefixed GATEKEEPERD_,
// then validates the merged result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: applying defaults: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("GATEKEEPERD_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps GATEKEEPERD_CACHE__CONNECT_TTL_MS to cache.connect_ttl_ms.
// A double underscore separates nesting levels so single underscores stay
// part of a key's own snake_case name (cache.connect_ttl_ms, not
// cache.connect.ttl.ms).
func envTransform(rawKey, value string) (string, interface{}) {
	return toKoanfPath(rawKey), value
}

func toKoanfPath(envKey string) string {
	key := strings.TrimPrefix(envKey, "GATEKEEPERD_")
	key = strings.ReplaceAll(key, "__", ".")
	return strings.ToLower(key)
}

// ConnectTTL returns the configured CONNECT/allow cache TTL as a duration.
func (c *Config) ConnectTTL() time.Duration {
	return time.Duration(c.Cache.ConnectTTLMs) * time.Millisecond
}

// DenyTTL returns the configured deny-verdict cache TTL as a duration.
func (c *Config) DenyTTL() time.Duration {
	return time.Duration(c.Cache.DenyTTLMs) * time.Millisecond
}

// EndpointDeadline returns the configured per-decision deadline as a duration.
func (c *Config) EndpointDeadline() time.Duration {
	return time.Duration(c.Endpoint.DeadlineMs) * time.Millisecond
}
