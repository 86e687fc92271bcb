package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr            string
	Store           string
	SQLitePath      string
	DatabaseURL     string
	SupabaseURL     string
	SupabaseAnonKey string
	Weighting       string
}

type WorkerConfig struct {
	Store        string
	SQLitePath   string
	DatabaseURL  string
	TickEvery    time.Duration
	YearsPerTick float64
	RunOnce      bool
}

type CLIConfig struct {
	APIBaseURL string
}

// AuthEnabled reports whether bearer tokens are checked against Supabase.
func (c APIConfig) AuthEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("WS_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:            addr,
		Store:           envStoreDefault(),
		SQLitePath:      envDefault("WS_SQLITE_PATH", "wealthsprint.db"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		Weighting:       envWeightingDefault(),
	}
	if err := checkStore(cfg.Store, cfg.DatabaseURL); err != nil {
		return cfg, err
	}
	if (cfg.SupabaseURL == "") != (cfg.SupabaseAnonKey == "") {
		return cfg, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set together")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		Store:        envStoreDefault(),
		SQLitePath:   envDefault("WS_SQLITE_PATH", "wealthsprint.db"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TickEvery:    envDurationDefault("WS_TICK_EVERY", time.Minute),
		YearsPerTick: envFloatDefault("WS_YEARS_PER_TICK", 1.0/12),
		RunOnce:      envBoolDefault("WS_WORKER_RUN_ONCE", false),
	}
	if err := checkStore(cfg.Store, cfg.DatabaseURL); err != nil {
		return cfg, err
	}
	if cfg.Store == "memory" {
		return cfg, fmt.Errorf("worker needs a persistent store, set WS_STORE to sqlite or postgres")
	}
	if cfg.TickEvery <= 0 {
		return cfg, fmt.Errorf("WS_TICK_EVERY must be positive")
	}
	if cfg.YearsPerTick <= 0 {
		return cfg, fmt.Errorf("WS_YEARS_PER_TICK must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("WS_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func checkStore(kind, databaseURL string) error {
	switch kind {
	case "memory", "sqlite":
		return nil
	case "postgres":
		if databaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		return nil
	default:
		return fmt.Errorf("unknown WS_STORE %q", kind)
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envStoreDefault() string {
	return strings.ToLower(envDefault("WS_STORE", "sqlite"))
}

func envWeightingDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("WS_SCENARIO_WEIGHTING")))
	switch v {
	case "uniform", "rarity":
		return v
	default:
		return "rarity"
	}
}
