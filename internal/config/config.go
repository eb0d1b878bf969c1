package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	PageOrigin     string        `mapstructure:"page_origin"`
	TargetOrigin   string        `mapstructure:"target_origin"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Memory         string        `mapstructure:"memory"`
	Log            LogConfig     `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("page_origin", "http://localhost:8080")
	v.SetDefault("target_origin", "*")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("send_buffer", 32)
	v.SetDefault("timeout", "0s")
	v.SetDefault("memory", "256mb")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration from file (if given, else ./webbridge.yaml or
// ./config/webbridge.yaml when present), WEBBRIDGE_* env vars, and changed
// flags, in increasing precedence.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("webbridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("webbridge")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"mode":           "mode",
	"port":           "port",
	"page-origin":    "page_origin",
	"target-origin":  "target_origin",
	"allowed-origin": "allowed_origins",
	"send-buffer":    "send_buffer",
	"timeout":        "timeout",
	"memory":         "memory",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// Validate rejects values the transport cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TargetOrigin == "" {
		return fmt.Errorf("target_origin must not be empty (use \"*\" for any origin)")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	return nil
}

// Logger builds the process logger described by the log section.
func (c *Config) Logger(out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if out == nil {
		out = os.Stderr
	}

	switch c.Log.Format {
	case "console", "":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (expected console or json)", c.Log.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
