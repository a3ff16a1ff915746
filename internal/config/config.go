// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR"         envDefault:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	LogDev          bool          `env:"LOG_DEV"           envDefault:"false"`
	OverridePINHash string        `env:"OVERRIDE_PIN_HASH"`
	TimerTick       time.Duration `env:"TIMER_TICK"        envDefault:"1s"`
	ClientBuffer    int           `env:"CLIENT_BUFFER"     envDefault:"8"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"10s"`
}

// Load reads an optional .env file from the working directory, then parses the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TimerTick <= 0 {
		return Config{}, fmt.Errorf("TIMER_TICK must be positive, got %s", cfg.TimerTick)
	}
	if cfg.ClientBuffer < 1 {
		return Config{}, fmt.Errorf("CLIENT_BUFFER must be at least 1, got %d", cfg.ClientBuffer)
	}
	return cfg, nil
}
