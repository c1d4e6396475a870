package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DispatchConfig controls the notification dispatcher and the periodic
// sweep jobs. It lives in a file so operators can tune retry behaviour
// without restarting the scheduler.
type DispatchConfig struct {
	RetryCeiling       int           `mapstructure:"retryCeiling"`
	DequeueBatchSize   int           `mapstructure:"dequeueBatchSize"`
	ExpiryBatchSize    int           `mapstructure:"expiryBatchSize"`
	StaleSessionCutoff time.Duration `mapstructure:"staleSessionCutoff"`
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		RetryCeiling:       3,
		DequeueBatchSize:   50,
		ExpiryBatchSize:    100,
		StaleSessionCutoff: 10 * time.Minute,
	}
}

type DispatchConfigHolder struct {
	current atomic.Value // holds DispatchConfig
}

func NewDispatchConfigHolder() (*DispatchConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("dispatch")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/arus/config") // Volume-mounted config
	v.AddConfigPath("/etc/arus")            // System config
	v.AddConfigPath(".")                    // Current directory (dev mode)

	// env hanya untuk override path (optional)
	v.SetEnvPrefix("ARUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultDispatchConfig()
		v.SetDefault("dispatch.retryCeiling", defaults.RetryCeiling)
		v.SetDefault("dispatch.dequeueBatchSize", defaults.DequeueBatchSize)
		v.SetDefault("dispatch.expiryBatchSize", defaults.ExpiryBatchSize)
		v.SetDefault("dispatch.staleSessionCutoff", defaults.StaleSessionCutoff)
	}

	var cfg DispatchConfig
	if err := v.UnmarshalKey("dispatch", &cfg); err != nil {
		return nil, err
	}
	if err := validateDispatchConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DispatchConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DispatchConfig
		if err := v.UnmarshalKey("dispatch", &updated); err != nil {
			log.Printf("[dispatch-config] reload failed: %v", err)
			return
		}
		if err := validateDispatchConfig(updated); err != nil {
			log.Printf("[dispatch-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[dispatch-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *DispatchConfigHolder) Get() DispatchConfig {
	return h.current.Load().(DispatchConfig)
}

// NewStaticDispatchConfigHolder returns a holder pinned to cfg, for tests
// and for processes that do not watch the config file.
func NewStaticDispatchConfigHolder(cfg DispatchConfig) *DispatchConfigHolder {
	holder := &DispatchConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateDispatchConfig(cfg DispatchConfig) error {
	if cfg.RetryCeiling < 1 {
		return errors.New("dispatch.retryCeiling must be at least 1")
	}
	if cfg.DequeueBatchSize < 1 {
		return errors.New("dispatch.dequeueBatchSize must be at least 1")
	}
	if cfg.ExpiryBatchSize < 1 {
		return errors.New("dispatch.expiryBatchSize must be at least 1")
	}
	if cfg.StaleSessionCutoff <= 0 {
		return errors.New("dispatch.staleSessionCutoff must be positive")
	}
	return nil
}
