package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddr    = ":8000"
	defaultTimeout = 15 * time.Second
)

// Config holds the service configuration.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string
	// Platform is the market data platform, "binance" or "bybit".
	Platform string
	// Symbols overrides the default symbol set used when a request names none.
	Symbols []string
	// RequestTimeout bounds a single upstream market data call.
	RequestTimeout time.Duration
}

type configTmp struct {
	Addr           string        `yaml:"addr,omitempty"`
	Platform       string        `yaml:"platform,omitempty"`
	Symbols        []string      `yaml:"symbols,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// Get reads the configuration from a yaml file when -config is given,
// otherwise from the remaining CLI flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	addr := flag.String("addr", defaultAddr, "http listen address")
	platform := flag.String("platform", "binance", "market data platform: binance or bybit")
	symbols := flag.String("symbols", "", "comma-separated default symbols, example: BTCUSDT,ETHUSDT")
	timeout := flag.Duration("timeout", defaultTimeout, "upstream request timeout")
	flag.Parse()

	if *configPath != "" {
		return Load(*configPath)
	}

	cfg := Config{
		Addr:           *addr,
		Platform:       strings.ToLower(*platform),
		Symbols:        splitSymbols(*symbols),
		RequestTimeout: *timeout,
	}
	return cfg, validate(cfg)
}

// Load reads the configuration from a yaml file.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("incorrect yaml config: %w", err)
	}

	cfg := Config{
		Addr:           tmp.Addr,
		Platform:       strings.ToLower(tmp.Platform),
		Symbols:        tmp.Symbols,
		RequestTimeout: tmp.RequestTimeout,
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Platform == "" {
		cfg.Platform = "binance"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	if cfg.Platform != "binance" && cfg.Platform != "bybit" {
		return fmt.Errorf("invalid 'platform' param: %s (must be binance or bybit)", cfg.Platform)
	}
	return nil
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			symbols = append(symbols, strings.ToUpper(p))
		}
	}
	return symbols
}
