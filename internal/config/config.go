package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Valkey    ValkeyConfig
	GitHub    GitHubConfig
	Pipeline  PipelineConfig
	Enricher  EnricherConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

type GitHubConfig struct {
	Token          string
	BaseURL        string
	RequestsPerSec float64
	Timeout        time.Duration
}

type PipelineConfig struct {
	BatchSize   int
	Concurrency int
	MaxRetries  int
	// StageTimeout bounds a single stage execution; zero disables.
	StageTimeout time.Duration
}

type EnricherConfig struct {
	BatchSize int
}

type SchedulerConfig struct {
	Interval    time.Duration
	StaleAfter  time.Duration
	MaxPerSweep int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "reposcope"),
			Password: getEnv("DB_PASSWORD", "reposcope"),
			Name:     getEnv("DB_NAME", "reposcope"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		GitHub: GitHubConfig{
			Token:          getEnv("GITHUB_TOKEN", ""),
			BaseURL:        getEnv("GITHUB_API_URL", "https://api.github.com"),
			RequestsPerSec: getEnvFloat("GITHUB_REQUESTS_PER_SEC", 1.0),
			Timeout:        time.Duration(getEnvInt("GITHUB_TIMEOUT_SECS", 30)) * time.Second,
		},
		Pipeline: PipelineConfig{
			BatchSize:    getEnvInt("PIPELINE_BATCH_SIZE", 50),
			Concurrency:  getEnvInt("PIPELINE_CONCURRENCY", 1),
			MaxRetries:   getEnvInt("PIPELINE_MAX_RETRIES", 3),
			StageTimeout: time.Duration(getEnvInt("PIPELINE_STAGE_TIMEOUT_SECS", 0)) * time.Second,
		},
		Enricher: EnricherConfig{
			BatchSize: getEnvInt("ENRICHER_BATCH_SIZE", 10),
		},
		Scheduler: SchedulerConfig{
			Interval:    time.Duration(getEnvInt("SCHEDULER_INTERVAL_MINS", 60)) * time.Minute,
			StaleAfter:  time.Duration(getEnvInt("SCHEDULER_STALE_HOURS", 24)) * time.Hour,
			MaxPerSweep: getEnvInt("SCHEDULER_MAX_PER_SWEEP", 100),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
