// Package config loads settings from config.yaml, a .env file and BRITISHDAYS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/japaniel/britishdays/pkg/search"
	"github.com/japaniel/britishdays/pkg/slang"
	"github.com/japaniel/britishdays/pkg/source"
)

// EnvPrefix prefixes every environment override, e.g. BRITISHDAYS_DATABASE_PATH.
const EnvPrefix = "BRITISHDAYS"

// Search modes.
const (
	ModeLive = "live"
	ModeMock = "mock"
)

// Config is the full application configuration.
type Config struct {
	Database  DatabaseConfig `mapstructure:"database"`
	Search    SearchConfig   `mapstructure:"search"`
	Sources   SourcesConfig  `mapstructure:"sources"`
	UserAgent string         `mapstructure:"user_agent"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SearchConfig struct {
	// Mode is "live" or "mock"; mock pins the rotation to the built-in list.
	Mode             string        `mapstructure:"mode"`
	Sources          []string      `mapstructure:"sources"`
	Fallback         string        `mapstructure:"fallback"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Schedule         string        `mapstructure:"schedule"`
	Pause            time.Duration `mapstructure:"pause"`
	LedgerCacheSize  int           `mapstructure:"ledger_cache_size"`
}

// SourceConfig covers both MediaWiki sources; the letter and register keys are Wiktionary only.
type SourceConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	PageSize    int           `mapstructure:"page_size"`
	Category    string        `mapstructure:"category"`
	Letters     []string      `mapstructure:"letters"`
	StartLetter string        `mapstructure:"start_letter"`
	Registers   []string      `mapstructure:"registers"`
}

type MockConfig struct {
	// File optionally replaces the built-in list with a JSON term file.
	File string `mapstructure:"file"`
}

type SourcesConfig struct {
	Wikipedia  SourceConfig `mapstructure:"wikipedia"`
	Wiktionary SourceConfig `mapstructure:"wiktionary"`
	Mock       MockConfig   `mapstructure:"mock"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "british_slang.db")

	v.SetDefault("search.mode", ModeLive)
	v.SetDefault("search.sources", []string{"wikipedia", "wiktionary", "mock"})
	v.SetDefault("search.fallback", "mock")
	v.SetDefault("search.failure_threshold", search.DefaultFailureThreshold)
	v.SetDefault("search.schedule", "")
	v.SetDefault("search.pause", "2s")
	v.SetDefault("search.ledger_cache_size", 4096)

	for name, endpoint := range map[string]string{
		"wikipedia":  source.DefaultWikipediaEndpoint,
		"wiktionary": source.DefaultWiktionaryEndpoint,
	} {
		prefix := "sources." + name + "."
		v.SetDefault(prefix+"endpoint", endpoint)
		v.SetDefault(prefix+"timeout", "10s")
		v.SetDefault(prefix+"retries", 3)
		v.SetDefault(prefix+"retry_delay", "500ms")
		v.SetDefault(prefix+"rate_limit", 1.0)
		v.SetDefault(prefix+"page_size", 10)
	}
	v.SetDefault("sources.wikipedia.category", source.DefaultWikipediaCategory)
	v.SetDefault("sources.wiktionary.category", source.DefaultWiktionaryCategory)
	v.SetDefault("sources.wiktionary.letters", source.DefaultLetters)
	v.SetDefault("sources.wiktionary.start_letter", "")
	v.SetDefault("sources.wiktionary.registers", source.DefaultRegisters)
	v.SetDefault("sources.mock.file", "")

	v.SetDefault("user_agent", source.DefaultUserAgent)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
}

// Load reads configuration. path names an explicit config file; when empty, config.yaml
// is looked up in the working directory and $HOME/.britishdays and may be absent.
func Load(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.britishdays")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database.path must be set")
	}
	switch c.Search.Mode {
	case ModeLive, ModeMock:
	default:
		return fmt.Errorf("config: search.mode must be %q or %q, got %q", ModeLive, ModeMock, c.Search.Mode)
	}
	if _, err := c.SourceTypes(); err != nil {
		return err
	}
	if _, err := slang.ParseSourceType(c.Search.Fallback); err != nil {
		return fmt.Errorf("config: search.fallback: %w", err)
	}
	if c.Search.FailureThreshold < 1 {
		return fmt.Errorf("config: search.failure_threshold must be positive, got %d", c.Search.FailureThreshold)
	}
	for name, sc := range map[string]SourceConfig{"wikipedia": c.Sources.Wikipedia, "wiktionary": c.Sources.Wiktionary} {
		if sc.Retries < 0 {
			return fmt.Errorf("config: sources.%s.retries must not be negative", name)
		}
		if sc.Timeout < 0 || sc.RetryDelay < 0 {
			return fmt.Errorf("config: sources.%s durations must not be negative", name)
		}
	}
	return nil
}

// MockOnly reports whether the rotation is pinned to the mock source.
func (c *Config) MockOnly() bool { return c.Search.Mode == ModeMock }

// SourceTypes parses search.sources in order.
func (c *Config) SourceTypes() ([]slang.SourceType, error) {
	if len(c.Search.Sources) == 0 {
		return nil, errors.New("config: search.sources must not be empty")
	}
	out := make([]slang.SourceType, 0, len(c.Search.Sources))
	for _, s := range c.Search.Sources {
		st, err := slang.ParseSourceType(s)
		if err != nil {
			return nil, fmt.Errorf("config: search.sources: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}

func (sc SourceConfig) client(userAgent string) source.ClientOptions {
	return source.ClientOptions{
		Endpoint:   sc.Endpoint,
		Timeout:    sc.Timeout,
		Retries:    sc.Retries,
		RetryDelay: sc.RetryDelay,
		RateLimit:  sc.RateLimit,
		UserAgent:  userAgent,
	}
}

// FetcherOptions maps the source sections onto fetcher options. Mock terms are
// loaded separately from Sources.Mock.File.
func (c *Config) FetcherOptions() source.Options {
	wp, wt := c.Sources.Wikipedia, c.Sources.Wiktionary
	return source.Options{
		Wikipedia: source.WikipediaOptions{
			ClientOptions: wp.client(c.UserAgent),
			Category:      wp.Category,
			PageSize:      wp.PageSize,
		},
		Wiktionary: source.WiktionaryOptions{
			ClientOptions: wt.client(c.UserAgent),
			Category:      wt.Category,
			Letters:       wt.Letters,
			StartLetter:   wt.StartLetter,
			Registers:     wt.Registers,
			PageSize:      wt.PageSize,
		},
	}
}

// SearchConfig returns the orchestrator configuration.
func (c *Config) SearchConfig() (search.Config, error) {
	sources, err := c.SourceTypes()
	if err != nil {
		return search.Config{}, err
	}
	fallback, err := slang.ParseSourceType(c.Search.Fallback)
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		Sources:          sources,
		Fallback:         fallback,
		MockOnly:         c.MockOnly(),
		FailureThreshold: c.Search.FailureThreshold,
		Pause:            c.Search.Pause,
	}, nil
}

// ActiveSources lists every source the orchestrator may call, fallback included.
func (c *Config) ActiveSources() ([]slang.SourceType, error) {
	if c.MockOnly() {
		return []slang.SourceType{slang.SourceMock}, nil
	}
	sources, err := c.SourceTypes()
	if err != nil {
		return nil, err
	}
	fallback, err := slang.ParseSourceType(c.Search.Fallback)
	if err != nil {
		return nil, err
	}
	for _, st := range sources {
		if st == fallback {
			return sources, nil
		}
	}
	return append(sources, fallback), nil
}
