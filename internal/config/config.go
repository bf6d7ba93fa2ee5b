package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type TimerConfig struct {
	DefaultMinutes int           `mapstructure:"default_minutes"`
	TickInterval   time.Duration `mapstructure:"tick_interval"` // e.g. "100ms"
	DefaultTag     string        `mapstructure:"default_tag"`
}

type AlertConfig struct {
	Desktop bool `mapstructure:"desktop"` // desktop notification
	Sound   bool `mapstructure:"sound"`   // system beep
	Bell    bool `mapstructure:"bell"`    // BEL on the daemon's stdout
}

type AnalyticsConfig struct {
	MinutesPerLevel int `mapstructure:"minutes_per_level"`
}

type Config struct {
	DatabasePath   string          `mapstructure:"database_path"`
	DatabaseDriver string          `mapstructure:"database_driver"` // "sqlite3" (cgo) or "sqlite" (pure Go)
	StateBackend   string          `mapstructure:"state_backend"`   // "sqlite" or "file"
	StateFile      string          `mapstructure:"state_file"`
	SocketPath     string          `mapstructure:"socket_path"`
	Timer          TimerConfig     `mapstructure:"timer"`
	Alert          AlertConfig     `mapstructure:"alert"`
	Analytics      AnalyticsConfig `mapstructure:"analytics"`
}

const (
	minTickInterval = 10 * time.Millisecond
	maxTickInterval = time.Second
)

func LoadConfig(configPath string) (*Config, error) {
	cfg, _, err := load(configPath)
	return cfg, err
}

// LoadAndWatch loads the configuration and then calls onChange with the
// re-validated configuration whenever the config file is written.
func LoadAndWatch(configPath string, onChange func(*Config)) (*Config, error) {
	cfg, v, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed (%s), reloading", e.Name)
		next, err := decode(v)
		if err != nil {
			log.Printf("Warning: keeping previous configuration: %v", err)
			return
		}
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func load(configPath string) (*Config, *viper.Viper, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/focustrack")
		v.AddConfigPath("/etc/focustrack/")
	}

	v.SetEnvPrefix("FOCUSTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_path", "focustrack.db")
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("state_backend", "sqlite")
	v.SetDefault("state_file", "focustrack-state.json")
	v.SetDefault("socket_path", "/tmp/focustrack.sock")
	v.SetDefault("timer.default_minutes", 25)
	v.SetDefault("timer.tick_interval", "100ms")
	v.SetDefault("timer.default_tag", "Work")
	v.SetDefault("alert.desktop", true)
	v.SetDefault("alert.sound", true)
	v.SetDefault("alert.bell", false)
	v.SetDefault("analytics.minutes_per_level", 600)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Configuration loaded: %+v", *cfg)
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, err
	}
	cfg.validate()
	return &cfg, nil
}

func (c *Config) validate() {
	if c.DatabaseDriver != "sqlite3" && c.DatabaseDriver != "sqlite" {
		log.Printf("Warning: invalid database_driver '%s', defaulting to 'sqlite3'", c.DatabaseDriver)
		c.DatabaseDriver = "sqlite3"
	}
	if c.StateBackend != "sqlite" && c.StateBackend != "file" {
		log.Printf("Warning: invalid state_backend '%s', defaulting to 'sqlite'", c.StateBackend)
		c.StateBackend = "sqlite"
	}
	if c.Timer.DefaultMinutes < 1 {
		log.Println("Warning: timer.default_minutes too low, setting to 25")
		c.Timer.DefaultMinutes = 25
	}
	if c.Timer.TickInterval < minTickInterval {
		log.Printf("Warning: timer.tick_interval too low, setting to %s", minTickInterval)
		c.Timer.TickInterval = minTickInterval
	}
	if c.Timer.TickInterval > maxTickInterval {
		log.Printf("Warning: timer.tick_interval too high, setting to %s", maxTickInterval)
		c.Timer.TickInterval = maxTickInterval
	}
	if c.Analytics.MinutesPerLevel < 60 {
		log.Println("Warning: analytics.minutes_per_level too low, setting to 60")
		c.Analytics.MinutesPerLevel = 60
	}
}

func (t TimerConfig) DefaultDuration() time.Duration {
	return time.Duration(t.DefaultMinutes) * time.Minute
}
