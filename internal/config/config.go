package config

import (
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/eigerco/tollbridge/internal/bridge"
	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/pkg/log"
)

const DefaultListen = "127.0.0.1:8545"

// Config is the parsed node configuration.
type Config struct {
	Admin            crypto.Address
	Validators       []crypto.Address
	Threshold        uint64
	Toll             state.TollConfig
	Limits           map[state.Direction]state.Limits
	RecheckForwarded bool

	// DBPath is the pebble directory. Empty keeps state in memory.
	DBPath    string
	CacheSize int
	Listen    string
	Log       log.Options
}

// rawConfig is the on-disk YAML shape. Values are decimal strings.
type rawConfig struct {
	Admin      string   `yaml:"admin"`
	Validators []string `yaml:"validators"`
	Threshold  uint64   `yaml:"threshold"`
	Toll       struct {
		Fee         string `yaml:"fee"`
		Destination string `yaml:"destination"`
	} `yaml:"toll"`
	Limits           map[string]rawLimits `yaml:"limits"`
	RecheckForwarded bool                 `yaml:"recheck_forwarded"`
	Database         struct {
		Path      string `yaml:"path"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"database"`
	Listen string `yaml:"listen"`
	Log    struct {
		Level string `yaml:"level"`
		Type  string `yaml:"type"`
	} `yaml:"log"`
}

type rawLimits struct {
	DailyLimit string `yaml:"daily_limit"`
	MaxPerTx   string `yaml:"max_per_tx"`
	MinPerTx   string `yaml:"min_per_tx"`
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Threshold:        raw.Threshold,
		RecheckForwarded: raw.RecheckForwarded,
		DBPath:           raw.Database.Path,
		CacheSize:        raw.Database.CacheSize,
		Listen:           raw.Listen,
		Limits:           make(map[state.Direction]state.Limits, len(state.Directions)),
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = store.DefaultCacheSize
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	var err error
	if cfg.Admin, err = crypto.AddressFromHex(raw.Admin); err != nil {
		return nil, invalid("admin", err)
	}
	for i, v := range raw.Validators {
		addr, err := crypto.AddressFromHex(v)
		if err != nil {
			return nil, invalid(fmt.Sprintf("validators[%d]", i), err)
		}
		cfg.Validators = append(cfg.Validators, addr)
	}

	fee, err := decimal(raw.Toll.Fee)
	if err != nil {
		return nil, invalid("toll.fee", err)
	}
	cfg.Toll.Fee = *fee
	if raw.Toll.Destination != "" {
		if cfg.Toll.Destination, err = crypto.AddressFromHex(raw.Toll.Destination); err != nil {
			return nil, invalid("toll.destination", err)
		}
	}

	for name, rl := range raw.Limits {
		dir, err := state.ParseDirection(name)
		if err != nil {
			return nil, invalid("limits", err)
		}
		if _, dup := cfg.Limits[dir]; dup {
			return nil, invalid("limits", fmt.Errorf("%s configured twice", dir))
		}
		l, err := rl.limits()
		if err != nil {
			return nil, invalid("limits."+name, err)
		}
		cfg.Limits[dir] = l
	}

	if cfg.Log.LogLevel, err = parseLevel(raw.Log.Level); err != nil {
		return nil, invalid("log.level", err)
	}
	if cfg.Log.Type, err = log.ParseLoggerType(raw.Log.Type); err != nil {
		return nil, invalid("log.type", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints of the configuration.
func (c *Config) Validate() error {
	if c.Admin.IsZero() {
		return invalid("admin", fmt.Errorf("must be set"))
	}
	if len(c.Validators) == 0 {
		return invalid("validators", fmt.Errorf("must not be empty"))
	}
	seen := crypto.NewAddressSet()
	for _, v := range c.Validators {
		if seen.Has(v) {
			return invalid("validators", fmt.Errorf("%s listed twice", v))
		}
		seen.Add(v)
	}
	if c.Threshold == 0 || c.Threshold > uint64(len(c.Validators)) {
		return invalid("threshold", fmt.Errorf("%d outside 1..%d", c.Threshold, len(c.Validators)))
	}
	if !c.Toll.Fee.IsZero() && c.Toll.Destination.IsZero() {
		return invalid("toll.destination", fmt.Errorf("required when a fee is set"))
	}
	for _, dir := range state.Directions {
		l, ok := c.Limits[dir]
		if !ok {
			return invalid("limits", fmt.Errorf("missing %s", dir))
		}
		if err := l.Validate(&c.Toll.Fee); err != nil {
			return fmt.Errorf("limits.%s: %w", dir, err)
		}
	}
	if c.CacheSize < 0 {
		return invalid("database.cache_size", fmt.Errorf("negative"))
	}
	return nil
}

// BridgeConfig returns the settlement part of the configuration.
func (c *Config) BridgeConfig() bridge.Config {
	l := make(map[state.Direction]state.Limits, len(c.Limits))
	for dir, v := range c.Limits {
		l[dir] = v
	}
	return bridge.Config{
		Admin:            c.Admin,
		Toll:             c.Toll,
		Limits:           l,
		RecheckForwarded: c.RecheckForwarded,
	}
}

func (r rawLimits) limits() (state.Limits, error) {
	var l state.Limits
	for _, f := range []struct {
		name string
		in   string
		out  *uint256.Int
	}{
		{"daily_limit", r.DailyLimit, &l.DailyLimit},
		{"max_per_tx", r.MaxPerTx, &l.MaxPerTx},
		{"min_per_tx", r.MinPerTx, &l.MinPerTx},
	} {
		v, err := decimal(f.in)
		if err != nil {
			return state.Limits{}, fmt.Errorf("%s: %w", f.name, err)
		}
		f.out.Set(v)
	}
	return l, nil
}

func decimal(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return log.ParseLogLevel(s)
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrConfigurationInvalid, field, err)
}
