package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// MaxThreads is the upper limit of download.threads
const MaxThreads = 256

// Config holds the application configuration
type Config struct {
	Paths    Paths    `yaml:"paths" json:"paths" jsonschema:"description=File locations"`
	Download Download `yaml:"download" json:"download" jsonschema:"description=Download settings"`
	Network  Network  `yaml:"network" json:"network" jsonschema:"description=Network settings"`
}

// Paths holds locations of the listings file, episodes database and downloaded episodes
type Paths struct {
	SaveLocation string `yaml:"save_location" json:"save_location" jsonschema:"default=~/podcasts,description=Directory episodes are saved to"`
	ListingsFile string `yaml:"listings_file" json:"listings_file" jsonschema:"default=~/.podfetch/podcasts.xml,description=XML file listing the feeds"`
	EpisodesDB   string `yaml:"episodes_db" json:"episodes_db" jsonschema:"default=~/.podfetch/episodes.db,description=Database of downloaded episodes"`
}

// Download holds download settings
type Download struct {
	Threads        int           `yaml:"threads" json:"threads" jsonschema:"default=1,minimum=1,maximum=256,description=Maximum concurrent downloads"`
	RecentEpisodes int           `yaml:"recent_episodes" json:"recent_episodes" jsonschema:"default=0,minimum=0,description=Download only N most recent episodes of a feed (0 for all)"`
	MinFreeSpace   int64         `yaml:"min_free_space" json:"min_free_space" jsonschema:"default=0,minimum=-1,description=Stop downloading when free space in bytes drops to this value (-1 disables)"`
	FilterExplicit bool          `yaml:"filter_explicit" json:"filter_explicit" jsonschema:"default=false,description=Skip episodes marked explicit"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent for HTTP requests (podfetch/<version> if empty)"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=0,description=Timeout of a single HTTP exchange (0 for none)"`
}

// Network holds network settings
type Network struct {
	IgnoreNotModified bool `yaml:"ignore_not_modified" json:"ignore_not_modified" jsonschema:"default=false,description=Always fetch feeds even if not modified since the last run"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Paths: Paths{
			SaveLocation: "~/podcasts",
			ListingsFile: "~/.podfetch/podcasts.xml",
			EpisodesDB:   "~/.podfetch/episodes.db",
		},
		Download: Download{Threads: 1},
	}
}

// Load reads configuration from a YAML file on top of defaults. A missing file is not an error,
// the defaults are used as is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	switch {
	case errors.Is(err, os.ErrNotExist):
		lgr.Printf("[DEBUG] config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		// expand environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		// verify against embedded schema
		if err := VerifyAgainstEmbeddedSchema([]byte(expanded)); err != nil {
			// schema validation is supplementary
			lgr.Printf("[ERROR] schema validation failed: %v", err)
		}
	}

	cfg.normalize()
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration to path, replacing an existing file
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	header := "# podfetch configuration, sizes in bytes, min_free_space -1 disables the check\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// normalize clamps numeric settings to their ranges and expands home in paths
func (c *Config) normalize() {
	c.Download.Threads = min(max(c.Download.Threads, 1), MaxThreads)
	if c.Download.RecentEpisodes < 0 {
		c.Download.RecentEpisodes = 0
	}
	if c.Download.MinFreeSpace < -1 {
		c.Download.MinFreeSpace = -1
	}
	c.Paths.SaveLocation = ExpandHome(c.Paths.SaveLocation)
	c.Paths.ListingsFile = ExpandHome(c.Paths.ListingsFile)
	c.Paths.EpisodesDB = ExpandHome(c.Paths.EpisodesDB)
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Paths.SaveLocation) == "" {
		return fmt.Errorf("paths.save_location is required")
	}
	if strings.TrimSpace(cfg.Paths.ListingsFile) == "" {
		return fmt.Errorf("paths.listings_file is required")
	}
	if strings.TrimSpace(cfg.Paths.EpisodesDB) == "" {
		return fmt.Errorf("paths.episodes_db is required")
	}
	if cfg.Download.Timeout < 0 {
		return fmt.Errorf("download.timeout must be non-negative")
	}
	return nil
}

// ExpandHome replaces leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
