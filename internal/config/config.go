// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"anicat/internal/extract"
	"anicat/internal/httputil"
	"anicat/internal/media"
)

const appName = "anicat"

// Config holds all application configuration.
type Config struct {
	APIBase       string        `toml:"api_base"`
	Lang          string        `toml:"lang"`
	UserAgent     string        `toml:"user_agent"`
	Player        string        `toml:"player"`
	Quality       string        `toml:"quality"`
	CacheCapacity int           `toml:"cache_capacity"`
	CacheSweep    time.Duration `toml:"cache_sweep"`
	DomainLevels  int           `toml:"domain_levels"`
	Extractors    []string      `toml:"extractors"`
	LogLevel      string        `toml:"log_level"`
	LogJSON       bool          `toml:"log_json"`
	Debug         bool          `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		APIBase:       "https://api.yani.tv",
		Lang:          "ru",
		UserAgent:     httputil.DefaultUserAgent,
		Player:        "mpv",
		Quality:       "720",
		CacheCapacity: 20,
		CacheSweep:    3 * time.Minute,
		DomainLevels:  media.DefaultDomainLevels,
		Extractors:    slices.Clone(extract.Names),
		LogLevel:      "warn",
		LogJSON:       false,
		Debug:         false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	if _, err := ParseQuality(c.Quality); err != nil {
		return err
	}

	if c.APIBase == "" {
		return fmt.Errorf("api_base cannot be empty")
	}
	if u, err := url.Parse(c.APIBase); err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("api_base %q must be an https URL", c.APIBase)
	}

	if c.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be at least 1, got %d", c.CacheCapacity)
	}
	if c.CacheSweep < time.Second {
		return fmt.Errorf("cache_sweep must be at least 1s, got %s", c.CacheSweep)
	}
	if c.DomainLevels < 1 {
		return fmt.Errorf("domain_levels must be at least 1, got %d", c.DomainLevels)
	}

	if len(c.Extractors) == 0 {
		return fmt.Errorf("extractors cannot be empty (valid: %s)", strings.Join(extract.Names, ", "))
	}
	for _, name := range c.Extractors {
		if !slices.Contains(extract.Names, strings.ToLower(name)) {
			return fmt.Errorf("unknown extractor %q (valid: %s)", name, strings.Join(extract.Names, ", "))
		}
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	return nil
}

// ParseQuality converts a quality setting such as "720" or "720p".
func ParseQuality(s string) (media.Quality, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "p"))
	q := media.Quality(n)
	if err != nil || q == media.QualityAudio || !q.Valid() {
		return 0, fmt.Errorf("unsupported quality %q (valid: 144, 240, 360, 480, 720, 1080)", s)
	}
	return q, nil
}

// PreferredQuality returns the configured quality, or 720 if it does not parse.
func (c *Config) PreferredQuality() media.Quality {
	q, err := ParseQuality(c.Quality)
	if err != nil {
		return media.Quality720
	}
	return q
}
