// Package config loads the client configuration from a YAML or TOML file,
// applies defaults and LINGOFLOW_* environment overrides, and validates it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LINGOFLOW_"

// Draft checkpoint backends.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Defaults.
const (
	DefaultAPIURL     = "http://localhost:8787"
	DefaultTimeout    = 15 * time.Second
	DefaultPaymentKey = "pk_sandbox"
	DefaultLanguage   = "en"
)

// DefaultFileNames are searched, in order, in the working directory when
// no config path is given.
var DefaultFileNames = []string{"lingoflow.yaml", "lingoflow.yml", "lingoflow.toml"}

// Duration is a time.Duration written as "15s" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete client configuration.
type Config struct {
	API      APIConfig     `yaml:"api" toml:"api"`
	Payment  PaymentConfig `yaml:"payment" toml:"payment"`
	Drafts   DraftsConfig  `yaml:"drafts" toml:"drafts"`
	State    StateConfig   `yaml:"state" toml:"state"`
	Log      LogConfig     `yaml:"log" toml:"log"`
	Language string        `yaml:"language" toml:"language"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-" toml:"-"`
}

// APIConfig locates the learner API.
type APIConfig struct {
	BaseURL string   `yaml:"base_url" toml:"base_url"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// PaymentConfig locates the payment provider.
type PaymentConfig struct {
	BaseURL        string `yaml:"base_url" toml:"base_url"`
	PublishableKey string `yaml:"publishable_key" toml:"publishable_key"`
}

// DraftsConfig selects where wizard checkpoints are kept.
type DraftsConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
}

// StateConfig locates the token and preference file.
type StateConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LogConfig configures the console logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when nothing is configured.
// Paths live under dir, normally the user config directory.
func Default(dir string) *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIURL,
			Timeout: Duration(DefaultTimeout),
		},
		Payment: PaymentConfig{
			BaseURL:        DefaultAPIURL,
			PublishableKey: DefaultPaymentKey,
		},
		Drafts: DraftsConfig{
			Backend: BackendYAML,
			Path:    filepath.Join(dir, "drafts"),
		},
		State: StateConfig{
			Path: filepath.Join(dir, "state.ini"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Language: DefaultLanguage,
	}
}

// Dir returns the per-user configuration directory.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "lingoflow")
}

// Loader reads configuration. Env and Dir are injectable for tests.
type Loader struct {
	// Env looks up environment variables.
	Env func(key string) (string, bool)
	// Dir is the per-user config directory used for defaults.
	Dir string
	// WorkDir is searched for DefaultFileNames.
	WorkDir string
}

// NewLoader returns a loader bound to the process environment.
func NewLoader() *Loader {
	wd, _ := os.Getwd()
	return &Loader{Env: os.LookupEnv, Dir: Dir(), WorkDir: wd}
}

// Load reads the file at path (or the first default file found when path
// is empty), applies environment overrides and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default(l.Dir)

	file, err := l.locate(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := decodeFile(file, cfg); err != nil {
			return nil, err
		}
		cfg.Source = file
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) locate(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", NewUserError(ErrCodeConfigNotFound, "config file not found").
				WithContext(path).
				WithSuggestion("Check the --config path, or omit it to use defaults").
				WithUnderlying(err)
		}
		return path, nil
	}

	var candidates []string
	if l.WorkDir != "" {
		for _, name := range DefaultFileNames {
			candidates = append(candidates, filepath.Join(l.WorkDir, name))
		}
	}
	if l.Dir != "" {
		candidates = append(candidates, filepath.Join(l.Dir, "config.yaml"), filepath.Join(l.Dir, "config.toml"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewUserError(ErrCodeConfigNotFound, "cannot read config file").
			WithContext(path).
			WithUnderlying(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			err = errors.New(strict.String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return NewUserError(ErrCodeConfigParse, "unsupported config format").
			WithContext(path).
			WithSuggestion("Use a .yaml, .yml or .toml file")
	}
	if err != nil {
		return NewUserError(ErrCodeConfigParse, "invalid config file").
			WithContext(path).
			WithSuggestion("Fix the syntax error or remove unknown keys").
			WithUnderlying(err)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	lookup := l.Env
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	str("API_URL", &cfg.API.BaseURL)
	str("PAYMENT_URL", &cfg.Payment.BaseURL)
	str("PAYMENT_KEY", &cfg.Payment.PublishableKey)
	str("DRAFTS_BACKEND", &cfg.Drafts.Backend)
	str("DRAFTS_PATH", &cfg.Drafts.Path)
	str("STATE_PATH", &cfg.State.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LANGUAGE", &cfg.Language)

	if v, ok := lookup(EnvPrefix + "API_TIMEOUT"); ok && v != "" {
		if err := cfg.API.Timeout.UnmarshalText([]byte(v)); err != nil {
			return NewUserError(ErrCodeValidationFailed, "invalid timeout in environment").
				WithContext(EnvPrefix + "API_TIMEOUT").
				WithSuggestion(`Use a duration such as "15s" or "1m"`).
				WithUnderlying(err)
		}
	}
	return nil
}

// Validate checks every setting and reports all problems together.
func (c *Config) Validate() error {
	errs := NewErrorList()

	checkURL(errs, "api.base_url", c.API.BaseURL)
	checkURL(errs, "payment.base_url", c.Payment.BaseURL)

	if c.API.Timeout.Std() <= 0 {
		errs.AddValidation("api.timeout", "must be positive", `Use a duration such as "15s"`)
	}
	if c.Payment.PublishableKey == "" {
		errs.AddValidation("payment.publishable_key", "is required", "Set the provider's publishable key")
	}

	switch c.Drafts.Backend {
	case BackendYAML, BackendSQLite:
		if c.Drafts.Path == "" {
			errs.AddValidation("drafts.path", "is required for the "+c.Drafts.Backend+" backend", "")
		}
	case BackendNone:
	default:
		errs.AddValidation("drafts.backend", fmt.Sprintf("unknown backend %q", c.Drafts.Backend),
			"Use one of: yaml, sqlite, none")
	}

	if c.State.Path == "" {
		errs.AddValidation("state.path", "is required", "")
	}
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		errs.AddValidation("log.level", err.Error(), "Use one of: debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs.AddValidation("log.format", fmt.Sprintf("unknown format %q", c.Log.Format), "Use text or json")
	}

	return errs.ToError()
}

func checkURL(errs *ErrorList, key, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.AddValidation(key, fmt.Sprintf("invalid URL %q", raw), "Use an absolute http or https URL")
	}
}
