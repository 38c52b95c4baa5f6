package utils

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration loaded from YAML.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
		Level      string `yaml:"level"`
	} `yaml:"logger"`

	Fetch struct {
		TimeoutSecs int    `yaml:"timeout_secs"`
		MaxPDFBytes int    `yaml:"max_pdf_bytes"`
		UserAgent   string `yaml:"user_agent"`
	} `yaml:"fetch"`

	PDF struct {
		// Engine selects the extraction backend: "auto", "native" or "fitz".
		Engine   string `yaml:"engine"`
		MaxPages int    `yaml:"max_pages"`
	} `yaml:"pdf"`

	Limits struct {
		MaxBodyBytes int `yaml:"max_body_bytes"`
	} `yaml:"limits"`
}

// AppConfig is the process-wide configuration. Populated by LoadConfig;
// exported so tests can tweak individual fields.
var AppConfig Config

// FetchTimeout returns the configured outbound fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSecs) * time.Second
}

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Port = ":8080"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 100
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 28
	cfg.Fetch.TimeoutSecs = 60
	cfg.Fetch.MaxPDFBytes = 32 << 20
	cfg.Fetch.UserAgent = "pdf2html-service/1.1"
	cfg.PDF.Engine = "auto"
	cfg.Limits.MaxBodyBytes = 64 << 20
	return cfg
}

// LoadConfig reads the YAML config file (CONFIG_PATH, default config.yaml)
// and applies environment overrides. A missing file is not an error; the
// defaults are enough to run locally.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic("invalid config file " + path + ": " + err.Error())
		}
	}

	// The hosting platform hands us a bare port number.
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = ":" + strings.TrimPrefix(port, ":")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logger.Level = level
	}

	validateConfig(&cfg)

	AppConfig = cfg
	return cfg
}

func validateConfig(cfg *Config) {
	if cfg.Fetch.TimeoutSecs <= 0 {
		panic("fetch.timeout_secs must be positive")
	}
	if cfg.Fetch.MaxPDFBytes <= 0 {
		panic("fetch.max_pdf_bytes must be positive")
	}
	switch cfg.PDF.Engine {
	case "", "auto", "native", "fitz":
	default:
		panic("pdf.engine must be one of auto, native, fitz")
	}
	if cfg.PDF.Engine == "" {
		cfg.PDF.Engine = "auto"
	}
}

// GetConfig returns the process-wide configuration.
func GetConfig() Config {
	return AppConfig
}
