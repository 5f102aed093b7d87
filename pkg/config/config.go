// Package config loads revenuemap settings.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file (--config, or $XDG_CONFIG_HOME/revenuemap/config.toml if present)
//  3. REVENUEMAP_* environment variables, including those set in a .env file
//     in the working directory
//
// Example file:
//
//	[server]
//	addr = ":8080"
//	base_url = "https://heatmaps.example.com"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[share]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[layout]
//	width = 1600
//	top_n = 25
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/matzehuels/revenuemap/pkg/cache"
	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/share"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REVENUEMAP_"

// Backend names.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"

	ShareMemory = "memory"
	ShareFile   = "file"
	ShareMongo  = "mongo"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds every setting.
type Config struct {
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
	Share  ShareConfig  `toml:"share"`
	Layout LayoutConfig `toml:"layout"`
}

// ServerConfig configures the HTTP API. BaseURL prefixes share links; when
// empty, links are relative.
type ServerConfig struct {
	Addr         string        `toml:"addr" validate:"required"`
	BaseURL      string        `toml:"base_url" validate:"omitempty,url"`
	MaxBodyBytes int64         `toml:"max_body_bytes" validate:"gt=0"`
	ReadTimeout  time.Duration `toml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `toml:"write_timeout" validate:"gte=0"`
}

// CacheConfig selects the layout cache. MemoryEntries bounds the memory
// backend (0 is unbounded).
type CacheConfig struct {
	Backend       string `toml:"backend" validate:"oneof=file memory redis none"`
	Dir           string `toml:"dir"`
	RedisURL      string `toml:"redis_url" validate:"required_if=Backend redis"`
	MemoryEntries int    `toml:"memory_entries" validate:"gte=0"`
}

type ShareConfig struct {
	Backend    string        `toml:"backend" validate:"oneof=memory file mongo"`
	Dir        string        `toml:"dir"`
	MongoURI   string        `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDB    string        `toml:"mongo_database"`
	DefaultTTL time.Duration `toml:"default_ttl" validate:"gte=0"`
}

// LayoutConfig holds defaults applied when a request leaves a field unset.
type LayoutConfig struct {
	Width        float64 `toml:"width" validate:"gt=0,lte=100000"`
	Height       float64 `toml:"height" validate:"gt=0,lte=100000"`
	MinPartition float64 `toml:"min_partition"`
	TopN         int     `toml:"top_n" validate:"gte=0,lte=10000"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 10 << 20,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Cache: CacheConfig{Backend: CacheFile},
		Share: ShareConfig{Backend: ShareMemory, DefaultTTL: share.DefaultTTL},
		Layout: LayoutConfig{
			Width:  1200,
			Height: 800,
		},
	}
}

// DefaultPath returns the config file consulted when no path is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "revenuemap", "config.toml"), nil
}

// Load builds the configuration. An explicit path must exist; the default
// path is used only when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.FromValidator(errors.ErrCodeInvalidConfig, err, "config")
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"ADDR":           &c.Server.Addr,
		"BASE_URL":       &c.Server.BaseURL,
		"CACHE":          &c.Cache.Backend,
		"CACHE_DIR":      &c.Cache.Dir,
		"REDIS_URL":      &c.Cache.RedisURL,
		"SHARE_STORE":    &c.Share.Backend,
		"SHARE_DIR":      &c.Share.Dir,
		"MONGO_URI":      &c.Share.MongoURI,
		"MONGO_DATABASE": &c.Share.MongoDB,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"WIDTH":         &c.Layout.Width,
		"HEIGHT":        &c.Layout.Height,
		"MIN_PARTITION": &c.Layout.MinPartition,
	}
	for name, dst := range floats {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "%s%s: not a number: %q", EnvPrefix, name, v)
		}
		*dst = f
	}

	if v, ok := lookup(EnvPrefix + "TOP_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "%sTOP_N: not an integer: %q", EnvPrefix, v)
		}
		c.Layout.TopN = n
	}
	if v, ok := lookup(EnvPrefix + "SHARE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "%sSHARE_TTL: %v", EnvPrefix, err)
		}
		c.Share.DefaultTTL = d
	}
	return nil
}

// Open creates the configured cache backend.
func (c CacheConfig) Open(ctx context.Context) (cache.Cache, error) {
	switch c.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheMemory:
		return cache.NewMemoryCache(c.MemoryEntries), nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: c.RedisURL})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}

	dir := c.Dir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// Open creates the configured share store.
func (c ShareConfig) Open(ctx context.Context) (share.Store, error) {
	switch c.Backend {
	case ShareFile:
		fs, err := share.NewFileStore(c.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case ShareMongo:
		ms, err := share.NewMongoStore(ctx, share.MongoConfig{URI: c.MongoURI, Database: c.MongoDB})
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	return share.NewMemoryStore(), nil
}
