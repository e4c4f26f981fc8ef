package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/matheuskafuri/devcontext/internal/correlate"
	"github.com/matheuskafuri/devcontext/internal/item"
	"github.com/matheuskafuri/devcontext/internal/signal"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type Config struct {
	Cache       CacheConfig       `yaml:"cache"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Budget      BudgetConfig      `yaml:"budget"`
	Sources     SourcesConfig     `yaml:"sources"`
	Log         LogConfig         `yaml:"log"`
}

type CacheConfig struct {
	DefaultTTL    string            `yaml:"default_ttl"`
	SweepInterval string            `yaml:"sweep_interval"`
	TTL           map[string]string `yaml:"ttl"`
}

type RankingConfig struct {
	Weights         WeightsConfig     `yaml:"weights"`
	DefaultHalfLife string            `yaml:"default_half_life"`
	DomainFloor     *float64          `yaml:"domain_floor,omitempty"`
	HalfLife        map[string]string `yaml:"half_life"`
}

type WeightsConfig struct {
	Keyword *float64 `yaml:"keyword,omitempty"`
	Recency *float64 `yaml:"recency,omitempty"`
	Domain  *float64 `yaml:"domain,omitempty"`
	Static  *float64 `yaml:"static,omitempty"`
}

type CorrelationConfig struct {
	Window     string   `yaml:"window"`
	ScoreFloor *float64 `yaml:"score_floor,omitempty"`
	Sources    []string `yaml:"sources"`
}

type FetchConfig struct {
	Timeout     string `yaml:"timeout"`
	RunTimeout  string `yaml:"run_timeout"`
	Concurrency int    `yaml:"concurrency"`
}

type BudgetConfig struct {
	MaxChars int    `yaml:"max_chars"`
	MaxItems int    `yaml:"max_items"`
	Horizon  string `yaml:"horizon"`
}

type SourcesConfig struct {
	GitHub   GitHubConfig `yaml:"github"`
	Fixtures string       `yaml:"fixtures"`
}

type GitHubConfig struct {
	Repos []string `yaml:"repos"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ParseDuration accepts Go durations plus a whole-day "Nd" form.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (c *Config) DefaultTTL() time.Duration {
	return durationOr(c.Cache.DefaultTTL, 5*time.Minute)
}

func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.Cache.SweepInterval, time.Minute)
}

// CacheTTLs returns the per-source TTL table keyed by source name.
func (c *Config) CacheTTLs() map[string]time.Duration {
	out := map[string]time.Duration{}
	for name, v := range c.Cache.TTL {
		if d := durationOr(v, 0); d > 0 {
			out[name] = d
		}
	}
	return out
}

// TTL returns the cache lifetime of a source.
func (c *Config) TTL(src item.Source) time.Duration {
	if d, ok := c.CacheTTLs()[string(src)]; ok {
		return d
	}
	return c.DefaultTTL()
}

func (c *Config) RankerConfig() signal.Config {
	def := signal.DefaultConfig()
	w := c.Ranking.Weights
	cfg := signal.Config{
		Weights: signal.Weights{
			Keyword: floatOr(w.Keyword, def.Weights.Keyword),
			Recency: floatOr(w.Recency, def.Weights.Recency),
			Domain:  floatOr(w.Domain, def.Weights.Domain),
			Static:  floatOr(w.Static, def.Weights.Static),
		},
		HalfLives:       def.HalfLives,
		DefaultHalfLife: durationOr(c.Ranking.DefaultHalfLife, def.DefaultHalfLife),
		DomainFloor:     floatOr(c.Ranking.DomainFloor, def.DomainFloor),
	}
	for name, v := range c.Ranking.HalfLife {
		src, err := item.ParseSource(name)
		if err != nil {
			continue
		}
		if d := durationOr(v, 0); d > 0 {
			cfg.HalfLives[src] = d
		}
	}
	return cfg
}

func (c *Config) HalfLife(src item.Source) time.Duration {
	cfg := c.RankerConfig()
	if d, ok := cfg.HalfLives[src]; ok {
		return d
	}
	return cfg.DefaultHalfLife
}

func (c *Config) CorrelatorConfig() correlate.Config {
	def := correlate.DefaultConfig()
	return correlate.Config{
		Window:     durationOr(c.Correlation.Window, def.Window),
		ScoreFloor: floatOr(c.Correlation.ScoreFloor, def.ScoreFloor),
	}
}

// CorrelationSources returns sources fetched on every run regardless of the
// intent's domains.
func (c *Config) CorrelationSources() []item.Source {
	var out []item.Source
	for _, name := range c.Correlation.Sources {
		if src, err := item.ParseSource(name); err == nil && src != item.Derived {
			out = append(out, src)
		}
	}
	return out
}

func (c *Config) FetchTimeout() time.Duration {
	return durationOr(c.Fetch.Timeout, 10*time.Second)
}

func (c *Config) RunTimeout() time.Duration {
	return durationOr(c.Fetch.RunTimeout, 30*time.Second)
}

func (c *Config) Concurrency() int {
	if c.Fetch.Concurrency <= 0 {
		return 4
	}
	return c.Fetch.Concurrency
}

func (c *Config) MaxChars() int {
	if c.Budget.MaxChars <= 0 {
		return 8000
	}
	return c.Budget.MaxChars
}

func (c *Config) MaxItems() int {
	if c.Budget.MaxItems < 0 {
		return 20
	}
	return c.Budget.MaxItems
}

// Horizon is how far around now a query without a time reference looks.
func (c *Config) Horizon() time.Duration {
	return durationOr(c.Budget.Horizon, 7*24*time.Hour)
}

func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return "warn"
	}
	return c.Log.Level
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "devcontext", "config.yaml")
}

// DefaultLogPath is used when logging to a file is requested without a path.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "devcontext", "devcontext.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the default path) on top of the
// embedded defaults. A missing file is created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply.
			_ = writeDefaults(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

func validate(cfg *Config) error {
	for _, section := range []struct {
		name   string
		values map[string]string
	}{
		{"cache.ttl", cfg.Cache.TTL},
		{"ranking.half_life", cfg.Ranking.HalfLife},
	} {
		for name, v := range section.values {
			if _, err := item.ParseSource(name); err != nil {
				return fmt.Errorf("%s: %w", section.name, err)
			}
			if d, err := ParseDuration(v); err != nil || d <= 0 {
				return fmt.Errorf("%s.%s: invalid duration %q", section.name, name, v)
			}
		}
	}

	for _, d := range []struct{ name, value string }{
		{"cache.default_ttl", cfg.Cache.DefaultTTL},
		{"cache.sweep_interval", cfg.Cache.SweepInterval},
		{"ranking.default_half_life", cfg.Ranking.DefaultHalfLife},
		{"correlation.window", cfg.Correlation.Window},
		{"fetch.timeout", cfg.Fetch.Timeout},
		{"fetch.run_timeout", cfg.Fetch.RunTimeout},
		{"budget.horizon", cfg.Budget.Horizon},
	} {
		if d.value == "" {
			continue
		}
		if _, err := ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", d.name, d.value)
		}
	}

	w := cfg.Ranking.Weights
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"ranking.weights.keyword", w.Keyword},
		{"ranking.weights.recency", w.Recency},
		{"ranking.weights.domain", w.Domain},
		{"ranking.weights.static", w.Static},
		{"ranking.domain_floor", cfg.Ranking.DomainFloor},
		{"correlation.score_floor", cfg.Correlation.ScoreFloor},
	} {
		if f.value != nil && (*f.value < 0 || *f.value > 1) {
			return fmt.Errorf("%s: must be between 0 and 1, got %v", f.name, *f.value)
		}
	}

	for _, name := range cfg.Correlation.Sources {
		src, err := item.ParseSource(name)
		if err != nil {
			return fmt.Errorf("correlation.sources: %w", err)
		}
		if src == item.Derived {
			return fmt.Errorf("correlation.sources: %q cannot be fetched", name)
		}
	}

	if cfg.Budget.MaxChars <= 0 {
		return fmt.Errorf("budget.max_chars must be positive, got %d", cfg.Budget.MaxChars)
	}
	if cfg.Budget.MaxItems < 0 {
		return fmt.Errorf("budget.max_items must not be negative, got %d", cfg.Budget.MaxItems)
	}

	for _, repo := range cfg.Sources.GitHub.Repos {
		if !repoPattern.MatchString(repo) {
			return fmt.Errorf("sources.github.repos: %q is not owner/repo", repo)
		}
	}
	return nil
}
