// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the bot needs to run. Required values have no
// defaults; Load reports all missing keys at once.
type Config struct {
	ChannelSecret string `env:"LINE_CHANNEL_SECRET,required,notEmpty"`
	ChannelToken  string `env:"LINE_CHANNEL_ACCESS_TOKEN,required,notEmpty"`
	MapsAPIKey    string `env:"GOOGLE_MAPS_API_KEY,required,notEmpty"`
	WeatherAPIKey string `env:"CWA_API_KEY"`

	ListenAddr     string        `env:"LISTEN_ADDR" envDefault:":8080"`
	Language       string        `env:"MAPS_LANGUAGE" envDefault:"zh-TW"`
	Timezone       string        `env:"TIMEZONE" envDefault:"Asia/Taipei"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`

	// Location is resolved from Timezone during Load.
	Location *time.Location `env:"-"`
}

// Load reads configuration from the environment and resolves the timezone.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolving timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if !strings.Contains(cfg.ListenAddr, ":") {
		return nil, fmt.Errorf("LISTEN_ADDR %q must include a port", cfg.ListenAddr)
	}

	return &cfg, nil
}
