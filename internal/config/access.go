package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultDecisionCacheTTL = 30 * time.Second

// AccessConfig tunes the permission resolver. It is read from access.yml and
// reloaded when the file changes.
type AccessConfig struct {
	Cache DecisionCacheConfig `mapstructure:"cache"`
}

type DecisionCacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func DefaultAccessConfig() AccessConfig {
	return AccessConfig{
		Cache: DecisionCacheConfig{
			Enabled: false,
			TTL:     defaultDecisionCacheTTL,
		},
	}
}

type AccessConfigHolder struct {
	current atomic.Value // holds AccessConfig
}

// NewStaticAccessConfigHolder returns a holder pinned to cfg.
func NewStaticAccessConfigHolder(cfg AccessConfig) *AccessConfigHolder {
	holder := &AccessConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewAccessConfigHolder loads access.yml from path (or the default search
// paths when empty) and watches it for changes.
func NewAccessConfigHolder(cfg Config, log *zap.Logger) (*AccessConfigHolder, error) {
	return loadAccessConfig(cfg.AccessConfigPath, log)
}

func loadAccessConfig(path string, log *zap.Logger) (*AccessConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("access.config")

	v := viper.New()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("access")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/bell24h")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BELL24H")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAccessConfig()
	v.SetDefault("access.cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("access.cache.ttl", defaults.Cache.TTL)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	var cfg AccessConfig
	if err := v.UnmarshalKey("access", &cfg); err != nil {
		return nil, err
	}
	if err := validateAccessConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticAccessConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AccessConfig
		if err := v.UnmarshalKey("access", &updated); err != nil {
			log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validateAccessConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name), zap.Bool("cache_enabled", updated.Cache.Enabled))
	})

	return holder, nil
}

func (h *AccessConfigHolder) Get() AccessConfig {
	if h == nil {
		return DefaultAccessConfig()
	}
	cfg, ok := h.current.Load().(AccessConfig)
	if !ok {
		return DefaultAccessConfig()
	}
	return cfg
}

func validateAccessConfig(cfg AccessConfig) error {
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return errors.New("access.cache.ttl must be positive when the cache is enabled")
	}
	return nil
}
