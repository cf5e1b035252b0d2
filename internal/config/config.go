package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/vorbisdemux/internal/demux"
)

const appName = "vorbisdemux"

type Config struct {
	Decoder DecoderConfig `koanf:"decoder"`
	Push    PushConfig    `koanf:"push"`
	Log     LogConfig     `koanf:"log"`
	Cache   CacheConfig   `koanf:"cache"`
}

// DecoderConfig holds demuxer behavior settings.
type DecoderConfig struct {
	OverlapDepth   int   `koanf:"overlap_depth"`   // resync candidates tracked at once (default: 4, min: 2)
	RetainComments bool  `koanf:"retain_comments"` // keep the raw comment header
	CheckSerial    *bool `koanf:"check_serial"`    // reject pages of other streams (default: true)
}

// PushConfig holds incremental feeding settings.
type PushConfig struct {
	ChunkSize int `koanf:"chunk_size"` // bytes appended per feed (default: 4096)
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level   string `koanf:"level"`   // zerolog level name (default: "info")
	Console *bool  `koanf:"console"` // human-readable output instead of JSON (default: true)
}

// CacheConfig holds probe cache settings.
type CacheConfig struct {
	Enabled *bool  `koanf:"enabled"` // default: true
	Path    string `koanf:"path"`    // default: $XDG_DATA_HOME/vorbisdemux/probe.db
}

// Load reads the config files found in the standard locations.
func Load() (*Config, error) {
	return load(getConfigPaths())
}

// LoadFile reads a single config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return load([]string{path})
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Cache.Path != "" {
		cfg.Cache.Path = expandPath(cfg.Cache.Path)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/vorbisdemux/config.toml
	if xdg.ConfigHome != "" {
		paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// GetDecoderConfig returns the decoder configuration with defaults applied.
func (c *Config) GetDecoderConfig() DecoderConfig {
	cfg := c.Decoder

	if cfg.OverlapDepth <= 0 {
		cfg.OverlapDepth = demux.DefaultOverlapDepth
	}
	cfg.OverlapDepth = max(cfg.OverlapDepth, 2)
	checkSerial := boolOr(cfg.CheckSerial, true)
	cfg.CheckSerial = &checkSerial

	return cfg
}

// DecoderOptions converts the decoder settings into demux options.
func (c *Config) DecoderOptions() []demux.Option {
	cfg := c.GetDecoderConfig()
	return []demux.Option{
		demux.WithOverlapDepth(cfg.OverlapDepth),
		demux.WithRetainComments(cfg.RetainComments),
		demux.WithSerialCheck(*cfg.CheckSerial),
	}
}

// GetPushConfig returns the push configuration with defaults applied.
func (c *Config) GetPushConfig() PushConfig {
	cfg := c.Push
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	return cfg
}

// GetLogConfig returns the log configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	console := boolOr(cfg.Console, true)
	cfg.Console = &console
	return cfg
}

// GetCacheConfig returns the cache configuration with defaults applied.
// The default path is only resolved when the cache is enabled.
func (c *Config) GetCacheConfig() (CacheConfig, error) {
	cfg := c.Cache
	enabled := boolOr(cfg.Enabled, true)
	cfg.Enabled = &enabled
	if enabled && cfg.Path == "" {
		path, err := xdg.DataFile(filepath.Join(appName, "probe.db"))
		if err != nil {
			return cfg, err
		}
		cfg.Path = path
	}
	return cfg, nil
}
