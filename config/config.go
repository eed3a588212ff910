package config

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Identity IdentityConfig `mapstructure:"identity"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	History  HistoryConfig  `mapstructure:"history"`
	RPC      RPCConfig      `mapstructure:"rpc"`
}

type ServerConfig struct {
	URL               string        `mapstructure:"url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	EventBuffer       int           `mapstructure:"event_buffer"`
}

type IdentityConfig struct {
	ID     string `mapstructure:"id"`
	UserID string `mapstructure:"user_id"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // json | console
	Output string        `mapstructure:"output"` // stdout | file | both
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
}

type HistoryConfig struct {
	Driver   string         `mapstructure:"driver"` // none | sqlite | postgres | pq
	DSN      string         `mapstructure:"dsn"`
	Preload  int            `mapstructure:"preload"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RPCConfig struct {
	Address string `mapstructure:"address"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "ws://localhost:8080/ws")
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.heartbeat_interval", 15*time.Second)
	v.SetDefault("server.event_buffer", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.filename", "logs/ludoclient.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 7)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("metrics.namespace", "ludoclient")
	v.SetDefault("metrics.address", ":9102")
	v.SetDefault("history.driver", "none")
	v.SetDefault("history.preload", 10)
	v.SetDefault("history.postgres.port", 5432)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LUDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and LUDO_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := newViper(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Watch reloads the configuration whenever the file changes and hands the new
// value to onChange. Reload failures are reported through onError.
func Watch(path string, onChange func(*Config), onError func(error)) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := load(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
