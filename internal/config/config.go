package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	QuestionsPath string `env:"QUESTIONS_PATH" envDefault:"questions.json"`

	SettleOffset     time.Duration `env:"SETTLE_OFFSET" envDefault:"800ms"`
	GracePeriod      time.Duration `env:"GRACE_PERIOD" envDefault:"1s"`
	DefaultTimeLimit time.Duration `env:"DEFAULT_TIME_LIMIT" envDefault:"15s"`
	// RoomTTL is how long a finished room lingers before it is swept.
	RoomTTL time.Duration `env:"ROOM_TTL" envDefault:"1h"`

	RoomCodeLength int `env:"ROOM_CODE_LENGTH" envDefault:"6"`

	HostPolicy           string `env:"HOST_POLICY" envDefault:"promote"`
	ReleaseBuzzerOnLeave bool   `env:"RELEASE_BUZZER_ON_LEAVE" envDefault:"false"`

	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	MaxMessageBytes int64    `env:"MAX_MESSAGE_BYTES" envDefault:"4096"`
	SendBuffer      int      `env:"SEND_BUFFER" envDefault:"64"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.SettleOffset < 0:
		return fmt.Errorf("SETTLE_OFFSET must not be negative")
	case c.GracePeriod < 0:
		return fmt.Errorf("GRACE_PERIOD must not be negative")
	case c.DefaultTimeLimit <= 0:
		return fmt.Errorf("DEFAULT_TIME_LIMIT must be positive")
	case c.RoomTTL <= 0:
		return fmt.Errorf("ROOM_TTL must be positive")
	case c.RoomCodeLength < 4 || c.RoomCodeLength > 12:
		return fmt.Errorf("ROOM_CODE_LENGTH must be between 4 and 12, got %d", c.RoomCodeLength)
	case c.MaxMessageBytes <= 0:
		return fmt.Errorf("MAX_MESSAGE_BYTES must be positive")
	case c.SendBuffer <= 0:
		return fmt.Errorf("SEND_BUFFER must be positive")
	}
	if c.HostPolicy != "promote" && c.HostPolicy != "keep" {
		return fmt.Errorf("HOST_POLICY must be promote or keep, got %q", c.HostPolicy)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
