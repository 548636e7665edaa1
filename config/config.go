package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fooddispatch/core/dispatch"
	"github.com/kilianp07/fooddispatch/core/factory"
	"github.com/kilianp07/fooddispatch/core/metrics"
	"github.com/kilianp07/fooddispatch/infra/amqp"
	"github.com/kilianp07/fooddispatch/infra/monitoring"
	"github.com/kilianp07/fooddispatch/infra/mqtt"
	"github.com/kilianp07/fooddispatch/infra/routing"
	"github.com/kilianp07/fooddispatch/infra/store/postgres"
)

// Config is the complete service configuration.
type Config struct {
	Postgres postgres.Config      `json:"postgres"`
	AMQP     amqp.Config          `json:"amqp"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Dispatch dispatch.Config      `json:"dispatch"`
	Routing  routing.Config       `json:"routing"`
	Courier  factory.ModuleConfig `json:"courier"`
	Metrics  metrics.Config       `json:"metrics"`
	Logging  LoggingConfig        `json:"logging"`
	API      APIConfig            `json:"api"`
	Sentry   monitoring.Config    `json:"sentry"`
}

// Load reads a yaml or json file and applies K_ prefixed environment
// overrides, with "__" separating nested keys (K_POSTGRES__PASSWORD).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset values in every section.
func (c *Config) SetDefaults() {
	c.Postgres.SetDefaults()
	if c.AMQP.URL != "" {
		c.AMQP.SetDefaults()
	}
	c.Dispatch.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	var errs []error
	if err := c.Postgres.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Dispatch.FallbackEnabled && c.Courier.Type == "" {
		errs = append(errs, errors.New("courier: type is required when fallback is enabled"))
	}
	return errors.Join(errs...)
}
