package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultWorkerURL    = "https://loreal-worker.aebake03.workers.dev/"
	DefaultProductsPath = "products.json"
	DefaultDBPath       = "routinebuilder.db"
	DefaultMaxTokens    = 1000
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultCacheTTL     = 10 * time.Minute
	DefaultListenAddr   = ":8080"
	DefaultLogDir       = "logs"

	EnvPrefix = "ROUTINEBUILDER"
)

// Config holds application configuration
type Config struct {
	WorkerURL    string
	ProductsPath string
	DBPath       string
	MaxTokens    int
	HTTPTimeout  time.Duration
	CacheTTL     time.Duration // 0 disables the reply cache
	ListenAddr   string
	LogDir       string
	SessionID    string // Resume an existing session by ID
	Debug        bool

	ConfigFile string
}

// Load builds the configuration from, in increasing precedence: defaults, the config file
// (.routinebuilder.yaml in the working or home directory), .env files and environment
// variables. Command-line flags are bound by the caller through v.
func Load(v *viper.Viper) (*Config, error) {
	loadEnvFiles()

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName(".routinebuilder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// a missing default config file is fine
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		WorkerURL:    v.GetString("worker_url"),
		ProductsPath: v.GetString("products_path"),
		DBPath:       v.GetString("db_path"),
		MaxTokens:    v.GetInt("max_tokens"),
		HTTPTimeout:  v.GetDuration("http_timeout"),
		CacheTTL:     v.GetDuration("cache_ttl"),
		ListenAddr:   v.GetString("listen_addr"),
		LogDir:       v.GetString("log_dir"),
		SessionID:    v.GetString("session_id"),
		Debug:        v.GetBool("debug"),
		ConfigFile:   v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail much later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WorkerURL) == "" {
		return fmt.Errorf("worker_url must be set")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("worker_url", DefaultWorkerURL)
	v.SetDefault("products_path", DefaultProductsPath)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("log_dir", DefaultLogDir)
	v.SetDefault("debug", false)
}

// loadEnvFiles loads .env files without overriding variables already set.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}
