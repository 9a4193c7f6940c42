// Package config loads and validates the CLI configuration: where the four
// EduCloud services live, where local state goes, and a few presentation
// knobs. The loaded YAML is checked against an embedded CUE schema so a
// malformed config fails with field-level messages before any command runs.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/educloud/educloud-cli/internal/api"
)

//go:embed schema.cue
var schemaCUE string

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "EDUCLOUD_CONFIG"

// Environment overrides for the service URLs. With all four set, no config
// file is needed at all.
const (
	EnvAuthURL      = "EDUCLOUD_AUTH_URL"
	EnvCatalogURL   = "EDUCLOUD_CATALOG_URL"
	EnvSearchURL    = "EDUCLOUD_SEARCH_URL"
	EnvPurchasesURL = "EDUCLOUD_PURCHASES_URL"
)

// Duration wraps time.Duration with YAML parsing of "3s"-style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Services holds the base URLs of the backend services.
type Services struct {
	Auth      string `yaml:"auth"`
	Catalog   string `yaml:"catalog"`
	Search    string `yaml:"search"`
	Purchases string `yaml:"purchases"`
}

// Config is the full CLI configuration.
type Config struct {
	Services      Services `yaml:"services"`
	TenantID      string   `yaml:"tenant_id"`
	StateDir      string   `yaml:"state_dir"`
	RedirectDelay Duration `yaml:"redirect_delay"`
	PageLimit     int      `yaml:"page_limit"`
}

// Load reads the configuration. path may be empty, in which case
// $EDUCLOUD_CONFIG and then ~/.educloud/config.yaml are tried; a missing
// file is fine as long as the service URLs arrive via environment
// variables. The result is always validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	resolved, explicit := resolvePath(path)
	if resolved != "" {
		data, err := os.ReadFile(resolved)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", resolved, err)
			}
		case os.IsNotExist(err) && !explicit:
			// Default location, nothing there: environment must cover it.
		default:
			return nil, fmt.Errorf("read config %s: %w", resolved, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate unifies the configuration with the embedded CUE schema and
// reports constraint violations with field paths.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("config schema: #Config not found")
	}

	value := ctx.Encode(map[string]any{
		"services": map[string]any{
			"auth":      c.Services.Auth,
			"catalog":   c.Services.Catalog,
			"search":    c.Services.Search,
			"purchases": c.Services.Purchases,
		},
		"tenant_id":      c.TenantID,
		"state_dir":      c.StateDir,
		"redirect_delay": int64(c.RedirectDelay),
		"page_limit":     c.PageLimit,
	})

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}

// Endpoints converts the service block into the API client's form.
func (c *Config) Endpoints() api.Endpoints {
	return api.Endpoints{
		Auth:      c.Services.Auth,
		Catalog:   c.Services.Catalog,
		Search:    c.Services.Search,
		Purchases: c.Services.Purchases,
	}
}

// StatePath is the location of the local state database.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, "state.db")
}

func defaults() *Config {
	stateDir := ".educloud"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".educloud")
	}
	return &Config{
		StateDir:      stateDir,
		RedirectDelay: Duration(3 * time.Second),
		PageLimit:     50,
	}
}

// resolvePath picks the config file location. explicit reports whether the
// user named the file themselves, in which case its absence is an error.
func resolvePath(path string) (resolved string, explicit bool) {
	if path != "" {
		return path, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".educloud", "config.yaml"), false
	}
	return "", false
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvAuthURL, &cfg.Services.Auth},
		{EnvCatalogURL, &cfg.Services.Catalog},
		{EnvSearchURL, &cfg.Services.Search},
		{EnvPurchasesURL, &cfg.Services.Purchases},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}
