// Package config loads process configuration from the environment (and an
// optional .env file) plus the persona file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/nora/internal/oracle"
)

const (
	DefaultBridgeURL     = "ws://127.0.0.1:3001/bridge"
	DefaultProvider      = "groq"
	DefaultTemperature   = 0.65
	DefaultCycleInterval = 12 * time.Second
	MinCycleInterval     = time.Second
	MaxCycleInterval     = 5 * time.Minute
	DefaultHealthPort    = 10000
	DefaultJournalPath   = "./data/nora.db"
)

// Server identifies the game server the bridge should join.
type Server struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Auth     string `json:"auth"`
	Version  string `json:"version"`
}

// Config is the full process configuration.
type Config struct {
	BridgeURL     string
	Server        Server
	Oracle        oracle.ProviderConfig
	CycleInterval time.Duration
	HealthPort    int
	JournalPath   string // empty disables the journal
	PersonaFile   string
	LogLevel      string
	LogJSON       bool
}

// Load reads .env (a missing file is fine) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset keys.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		BridgeURL: get("NORA_BRIDGE_URL", DefaultBridgeURL),
		Server: Server{
			Host:     get("MC_HOST", "localhost"),
			Username: get("MC_USERNAME", "Nora"),
			Auth:     get("MC_AUTH", "offline"),
			Version:  get("MC_VERSION", "1.21.1"),
		},
		PersonaFile: get("NORA_PERSONA_FILE", ""),
		LogLevel:    get("NORA_LOG_LEVEL", "info"),
	}

	// NORA_JOURNAL_PATH set to "" disables the journal, so presence matters.
	if v, ok := lookup("NORA_JOURNAL_PATH"); ok {
		cfg.JournalPath = strings.TrimSpace(v)
	} else {
		cfg.JournalPath = DefaultJournalPath
	}

	var err error
	if cfg.Server.Port, err = intVar(get("MC_PORT", "25565"), "MC_PORT"); err != nil {
		return nil, err
	}
	if cfg.HealthPort, err = intVar(get("PORT", strconv.Itoa(DefaultHealthPort)), "PORT"); err != nil {
		return nil, err
	}
	if cfg.CycleInterval, err = time.ParseDuration(get("NORA_CYCLE_INTERVAL", DefaultCycleInterval.String())); err != nil {
		return nil, fmt.Errorf("invalid NORA_CYCLE_INTERVAL: %w", err)
	}
	if cfg.LogJSON, err = strconv.ParseBool(get("NORA_LOG_JSON", "false")); err != nil {
		return nil, fmt.Errorf("invalid NORA_LOG_JSON: %w", err)
	}

	provider := strings.ToLower(get("LLM_PROVIDER", DefaultProvider))
	prefix := strings.ToUpper(provider)
	temp, err := strconv.ParseFloat(get("NORA_TEMPERATURE", strconv.FormatFloat(DefaultTemperature, 'f', -1, 64)), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid NORA_TEMPERATURE: %w", err)
	}
	cfg.Oracle = oracle.ProviderConfig{
		Provider:    provider,
		APIKey:      get(prefix+"_API_KEY", ""),
		Model:       get(prefix+"_MODEL", ""),
		BaseURL:     get(prefix+"_BASE_URL", ""),
		Temperature: float32(temp),
	}
	return cfg, nil
}

// Validate checks bounds and that a key-requiring provider has a key.
func (c *Config) Validate() error {
	if c.CycleInterval < MinCycleInterval || c.CycleInterval > MaxCycleInterval {
		return fmt.Errorf("NORA_CYCLE_INTERVAL %s outside [%s, %s]", c.CycleInterval, MinCycleInterval, MaxCycleInterval)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("MC_PORT %d out of range", c.Server.Port)
	}
	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("PORT %d out of range", c.HealthPort)
	}
	if c.BridgeURL == "" {
		return errors.New("NORA_BRIDGE_URL is empty")
	}
	needsKey, err := oracle.RequiresKey(c.Oracle.Provider)
	if err != nil {
		return err
	}
	if needsKey && c.Oracle.APIKey == "" {
		return fmt.Errorf("%w: set %s_API_KEY", oracle.ErrMissingAPIKey, strings.ToUpper(c.Oracle.Provider))
	}
	return nil
}

func intVar(s, key string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
