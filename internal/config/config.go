// # internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the config file searched for upward from the
// working directory when no explicit path is given.
const DefaultFileName = "proplint.toml"

type Config struct {
	Scan      Scan      `toml:"scan"`
	Rule      Rule      `toml:"rule"`
	Output    Output    `toml:"output"`
	Baseline  Baseline  `toml:"baseline"`
	Watch     Watch     `toml:"watch"`
	Telemetry Telemetry `toml:"telemetry"`
}

type Scan struct {
	Roots   []string `toml:"roots"`
	Exclude []string `toml:"exclude"`
	Jobs    int      `toml:"jobs"` // 0 means NumCPU
}

type Rule struct {
	// Ignores replaces the default ignore list (["/^\\$/"]). Entries are
	// plain names or /regex/ patterns matched against dotted paths.
	// Reserved Vue instance members stay ignored either way.
	Ignores        []string `toml:"ignores"`
	PropsOnlySetup *bool    `toml:"props_only_setup"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Baseline struct {
	Path string `toml:"path"`
}

type Watch struct {
	DebounceMS int     `toml:"debounce_ms"`
	RatePerSec float64 `toml:"rate_per_sec"`
	Burst      int     `toml:"burst"`
}

type Telemetry struct {
	MetricsListen string `toml:"metrics_listen"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

// PropsOnlySetupEnabled reports the setup/render props restriction
// toggle, defaulting to on.
func (r Rule) PropsOnlySetupEnabled() bool {
	if r.PropsOnlySetup == nil {
		return true
	}
	return *r.PropsOnlySetup
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateScan(&cfg); err != nil {
		return nil, err
	}
	if err := validateRule(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Discover walks upward from startDir looking for DefaultFileName.
// Returns the empty string when no config file exists on the path to
// the filesystem root.
func Discover(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, DefaultFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = []string{"."}
	}
	if cfg.Scan.Exclude == nil {
		cfg.Scan.Exclude = []string{"**/node_modules/**", "**/dist/**"}
	}
	if cfg.Scan.Jobs < 0 {
		cfg.Scan.Jobs = 0
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}

	if strings.TrimSpace(cfg.Baseline.Path) == "" {
		cfg.Baseline.Path = filepath.Join(".proplint", "baseline.db")
	}

	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = 300
	}
	if cfg.Watch.RatePerSec <= 0 {
		cfg.Watch.RatePerSec = 4.0
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 2
	}
}

func validateScan(cfg *Config) error {
	for i, root := range cfg.Scan.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("scan.roots[%d] must not be empty", i)
		}
	}
	for i, pattern := range cfg.Scan.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("scan.exclude[%d] must not be empty", i)
		}
	}
	return nil
}

func validateRule(cfg *Config) error {
	for i, pattern := range cfg.Rule.Ignores {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			return fmt.Errorf("rule.ignores[%d] must not be empty", i)
		}
		if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
			expr := pattern[1 : len(pattern)-1]
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("rule.ignores[%d]: invalid regex %q: %w", i, expr, err)
			}
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	switch format {
	case "text", "sarif", "markdown":
	default:
		return fmt.Errorf("output.format must be one of: text, sarif, markdown")
	}
	cfg.Output.Format = format
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.DebounceMS > 60_000 {
		return fmt.Errorf("watch.debounce_ms must be <= 60000, got %d", cfg.Watch.DebounceMS)
	}
	return nil
}
