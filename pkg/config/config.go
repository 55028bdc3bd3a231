// Package config loads and validates the run configuration
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

// Duration wraps time.Duration so YAML accepts "90s" / "2m" forms
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// AnalystConfig configures one analyst slot
type AnalystConfig struct {
	Kind   string  `yaml:"kind"`
	Weight float64 `yaml:"weight"`
}

// DataConfig selects the market-data source and window
type DataConfig struct {
	Period   string `yaml:"period"`
	Interval string `yaml:"interval"`
	Provider string `yaml:"provider"` // mock | stooq
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// Config is the full run configuration
type Config struct {
	Universe      []market.Instrument `yaml:"universe"`
	Analysts      []AnalystConfig     `yaml:"analysts"`
	MaxRevisions  int                 `yaml:"max_revisions"`
	MaxAnalysts   int                 `yaml:"max_analysts"`
	MaxReviewers  int                 `yaml:"max_reviewers"`
	Deadline      Duration            `yaml:"deadline"`
	Eligible      []string            `yaml:"eligible"`
	Data          DataConfig          `yaml:"data"`
	MaxVolatility float64             `yaml:"max_volatility"`
	Log           LogConfig           `yaml:"log"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Analysts: []AnalystConfig{
			{Kind: "momentum", Weight: 1.0},
			{Kind: "value", Weight: 1.0},
			{Kind: "risk", Weight: 1.2},
		},
		MaxRevisions: 2,
		MaxAnalysts:  4,
		MaxReviewers: 2,
		Deadline:     Duration(2 * time.Minute),
		Eligible:     []string{"BUY"},
		Data: DataConfig{
			Period:   "1y",
			Interval: "1d",
			Provider: "mock",
		},
		MaxVolatility: 0.30,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real env vars win over it either way
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

// applyEnv applies the environment overrides the original deployment
// used: per-analyst weights, risk ceiling, and data window.
func (c *Config) applyEnv() {
	for i := range c.Analysts {
		key := strings.ToUpper(c.Analysts[i].Kind) + "_AGENT_WEIGHT"
		if v, ok := envFloat(key); ok {
			c.Analysts[i].Weight = v
		}
	}
	if v, ok := envFloat("MAX_VOLATILITY"); ok {
		c.MaxVolatility = v
	}
	if v := os.Getenv("DEFAULT_PERIOD"); v != "" {
		c.Data.Period = v
	}
	if v := os.Getenv("DEFAULT_INTERVAL"); v != "" {
		c.Data.Interval = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ValidationError aggregates every configuration violation found
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the configuration. All problems are collected so
// the operator can fix them in one pass.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Universe) == 0 {
		problems = append(problems, "universe is empty")
	}
	for _, inst := range c.Universe {
		if inst.Symbol == "" {
			problems = append(problems, "universe entry with empty symbol")
		}
	}
	if len(c.Analysts) == 0 {
		problems = append(problems, "no analysts configured")
	}
	for _, a := range c.Analysts {
		switch a.Kind {
		case "momentum", "value", "risk", "llm":
		default:
			problems = append(problems, fmt.Sprintf("unknown analyst kind %q", a.Kind))
		}
		if a.Weight < 0 || math.IsNaN(a.Weight) || math.IsInf(a.Weight, 0) {
			problems = append(problems, fmt.Sprintf("analyst %q weight must be finite and >= 0", a.Kind))
		}
	}
	if c.MaxRevisions < 0 {
		problems = append(problems, "max_revisions must be >= 0")
	}
	if c.MaxAnalysts < 1 {
		problems = append(problems, "max_analysts must be >= 1")
	}
	if c.MaxReviewers < 1 {
		problems = append(problems, "max_reviewers must be >= 1")
	}
	for _, e := range c.Eligible {
		if !signal.Recommendation(e).Valid() {
			problems = append(problems, fmt.Sprintf("eligible value %q is not a recommendation", e))
		}
	}
	switch c.Data.Provider {
	case "", "mock", "stooq":
	default:
		problems = append(problems, fmt.Sprintf("unknown data provider %q", c.Data.Provider))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// FilterUniverse returns the instruments whose symbol matches the
// glob pattern. An empty pattern keeps everything.
func (c *Config) FilterUniverse(pattern string) ([]market.Instrument, error) {
	if pattern == "" {
		return c.Universe, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid filter pattern %q", pattern)
	}
	var out []market.Instrument
	for _, inst := range c.Universe {
		ok, err := doublestar.Match(pattern, inst.Symbol)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			out = append(out, inst)
		}
	}
	return out, nil
}

// EligibleSet converts the configured eligible list to a policy set
func (c *Config) EligibleSet() map[signal.Recommendation]bool {
	set := make(map[signal.Recommendation]bool, len(c.Eligible))
	for _, e := range c.Eligible {
		set[signal.Recommendation(e)] = true
	}
	return set
}
