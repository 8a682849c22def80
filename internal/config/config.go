package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"aliasdoc/internal/extractor"
)

var validate = validator.New()

type Config struct {
	Symbols struct {
		Kinds         []string `yaml:"kinds" toml:"kinds" json:"kinds"`
		MaxBlankLines int      `yaml:"max_blank_lines" toml:"max_blank_lines" json:"max_blank_lines" validate:"gte=0"`
		Markdown      bool     `yaml:"markdown" toml:"markdown" json:"markdown"`
	} `yaml:"symbols" toml:"symbols" json:"symbols"`
	Alias extractor.AliasSyntax `yaml:"alias" toml:"alias" json:"alias"`
	Run   struct {
		Jobs  int    `yaml:"jobs" toml:"jobs" json:"jobs" validate:"gte=0"`
		Cache string `yaml:"cache" toml:"cache" json:"cache"` // SQLite symbol cache; empty disables it
	} `yaml:"run" toml:"run" json:"run"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Symbols.Kinds = []string{string(extractor.KindFunction)}
	cfg.Symbols.MaxBlankLines = 1
	cfg.Alias = extractor.DefaultAliasSyntax()
	cfg.Run.Jobs = runtime.GOMAXPROCS(0)
	return &cfg
}

// LoadConfig builds the configuration from defaults, the optional file at
// path (YAML, TOML or JSON by extension), a .env file in the working
// directory and ALIASDOC_* environment variables, in increasing precedence.
func LoadConfig(fsys afero.Fs, path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load config file over the defaults
	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parsing TOML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("unable to parse config %s as YAML: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ALIASDOC_KINDS"); v != "" {
		c.Symbols.Kinds = splitList(v)
	}
	if v := getenv("ALIASDOC_MAX_BLANK_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALIASDOC_MAX_BLANK_LINES: %w", err)
		}
		c.Symbols.MaxBlankLines = n
	}
	if v := getenv("ALIASDOC_MARKDOWN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ALIASDOC_MARKDOWN: %w", err)
		}
		c.Symbols.Markdown = b
	}
	if v := getenv("ALIASDOC_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALIASDOC_JOBS: %w", err)
		}
		c.Run.Jobs = n
	}
	if v := getenv("ALIASDOC_CACHE"); v != "" {
		c.Run.Cache = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.IndexOptions(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Alias.Attribute) == "" || strings.TrimSpace(c.Alias.Key) == "" {
		return fmt.Errorf("alias.attribute and alias.key must both be set")
	}
	return nil
}

// IndexOptions converts the symbols section into C indexer options.
func (c *Config) IndexOptions() (extractor.IndexOptions, error) {
	opts := extractor.IndexOptions{
		MaxBlankLines: c.Symbols.MaxBlankLines,
		Markdown:      c.Symbols.Markdown,
	}
	for _, s := range c.Symbols.Kinds {
		k, err := extractor.ParseSymbolKind(s)
		if err != nil {
			return extractor.IndexOptions{}, fmt.Errorf("symbols.kinds: %w", err)
		}
		opts.Kinds = append(opts.Kinds, k)
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = []extractor.SymbolKind{extractor.KindFunction}
	}
	return opts, nil
}

// AliasSyntax returns the configured alias spelling.
func (c *Config) AliasSyntax() extractor.AliasSyntax {
	return c.Alias
}
