package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when no --config is given
const DefaultFile = "dm-consent.toml"

// EnvPrefix prefixes environment overrides, e.g. DM_CONSENT_PORT=9090
const EnvPrefix = "DM_CONSENT_"

// Config holds all configuration for the application
type Config struct {
	Port        int    `koanf:"port"`
	OpenBrowser bool   `koanf:"open"`
	Watch       bool   `koanf:"watch"`
	Verbosity   string `koanf:"verbosity"`
	VerboseCnt  int    `koanf:"verbose"`
	JSONLogs    bool   `koanf:"json_logs"`

	DB         DBConfig           `koanf:"db"`
	LLM        LLMConfig          `koanf:"llm"`
	Session    SessionConfig      `koanf:"session"`
	Cookies    CookiesConfig      `koanf:"cookies"`
	Vocabulary datamap.Vocabulary `koanf:"vocabulary"`

	// File is the config file that was actually read, empty if none
	File string `koanf:"-"`
}

// DBConfig selects the comment store backend
type DBConfig struct {
	Driver         string        `koanf:"driver"` // "sqlite" or "mysql"
	DSN            string        `koanf:"dsn"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// LLMConfig configures the hosted language model
type LLMConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// SessionConfig controls per-session Data Map lifetime
type SessionConfig struct {
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// CookiesConfig controls the simulated cookie scanner
type CookiesConfig struct {
	Seed int64 `koanf:"seed"` // 0 seeds from the clock
}

func defaults() map[string]interface{} {
	vocab := datamap.DefaultVocabulary()
	return map[string]interface{}{
		"port":                             8080,
		"open":                             false,
		"watch":                            false,
		"verbosity":                        "",
		"verbose":                          0,
		"json_logs":                        false,
		"db.driver":                        "sqlite",
		"db.dsn":                           "dm-consent.db",
		"db.connect_timeout":               30 * time.Second,
		"llm.api_key":                      "",
		"llm.model":                        "gemini-2.0-flash",
		"llm.timeout":                      20 * time.Second,
		"session.idle_timeout":             2 * time.Hour,
		"cookies.seed":                     0,
		"vocabulary.data_elements":         vocab.DataElements,
		"vocabulary.dsar_elements":         vocab.DSARElements,
		"vocabulary.vendors":               vocab.Vendors,
		"vocabulary.processing_activities": vocab.ProcessingActivities,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	path, explicit := configPath(f)
	return load(path, explicit, f)
}

// LoadFile re-reads defaults, the given file and the environment, without flags.
// Used when the config file changes on disk.
func LoadFile(path string) (*Config, error) {
	return load(path, true, nil)
}

func load(path string, explicit bool, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File. The default file is optional; an explicit one is not.
	loadedFile := ""
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else {
		loadedFile = path
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = loadedFile
	cfg.Vocabulary = cfg.Vocabulary.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configPath returns the --config flag value if set, else DefaultFile
func configPath(f *pflag.FlagSet) (string, bool) {
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Changed && fl.Value.String() != "" {
			return fl.Value.String(), true
		}
	}
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p, true
	}
	return DefaultFile, false
}

// sections whose first underscore in an env var name is a nesting separator
var sections = []string{"db", "llm", "session", "cookies", "vocabulary"}

// envKey maps DM_CONSENT_DB_CONNECT_TIMEOUT to db.connect_timeout
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// Validate checks values that would otherwise fail much later
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported db.driver %q (want sqlite or mysql)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must not be empty")
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must not be negative")
	}
	return nil
}

// Vocabulary holds the current vocabulary so it can be swapped on reload
type Vocabulary struct {
	v atomic.Pointer[datamap.Vocabulary]
}

// NewVocabulary creates a holder with an initial value
func NewVocabulary(initial datamap.Vocabulary) *Vocabulary {
	h := &Vocabulary{}
	h.Set(initial)
	return h
}

// Get returns the current vocabulary
func (h *Vocabulary) Get() datamap.Vocabulary {
	return *h.v.Load()
}

// Set replaces the vocabulary
func (h *Vocabulary) Set(v datamap.Vocabulary) {
	v = v.WithDefaults()
	h.v.Store(&v)
}

// Helper to use map as a provider; dotted keys are expanded into sections
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return maps.Unflatten(p.m, "."), nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
