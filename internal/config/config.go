// Package config resolves runtime settings from an optional YAML file, .env
// files and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/address-predictor/internal/normalize"
)

// Classifier backends.
const (
	BackendServing = "serving"
	BackendPostal  = "postal"
)

// Config is the complete runtime configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Predictor  PredictorConfig  `yaml:"predictor"`
	Database   DatabaseConfig   `yaml:"database"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ClassifierConfig selects and locates the sequence model.
type ClassifierConfig struct {
	Backend string        `yaml:"backend"` // serving or postal
	URL     string        `yaml:"url"`     // model sidecar base URL
	Model   string        `yaml:"model"`
	Version string        `yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
}

// PredictorConfig tunes the prediction pipeline around the model.
type PredictorConfig struct {
	Workers   int    `yaml:"workers"`   // batch concurrency
	Normalize string `yaml:"normalize"` // trim or collapse
}

// DatabaseConfig locates the labelled address samples used by evaluate and batch.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	Table    string `yaml:"table"`
}

// DSN returns the lib/pq connection string. Every value is quoted so empty
// values and values containing spaces or quotes survive parsing.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(d.Host), d.Port, quoteDSN(d.User), quoteDSN(d.Password), quoteDSN(d.Name), quoteDSN(d.SSLMode))
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteDSN(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Classifier: ClassifierConfig{
			Backend: BackendServing,
			URL:     "http://localhost:8501",
			Model:   "address",
			Timeout: 5 * time.Second,
		},
		Predictor: PredictorConfig{
			Workers:   4,
			Normalize: normalize.ModeTrim,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "addresses",
			SSLMode: "disable",
			Table:   "address_sample",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then .env files and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Log.Level = GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnv("LOG_FORMAT", c.Log.Format)

	c.Server.Host = GetEnv("WEB_HOST", c.Server.Host)
	c.Server.Port = GetEnvInt("WEB_PORT", c.Server.Port)

	c.Classifier.Backend = GetEnv("CLASSIFIER_BACKEND", c.Classifier.Backend)
	c.Classifier.URL = GetEnv("CLASSIFIER_URL", c.Classifier.URL)
	c.Classifier.Model = GetEnv("MODEL_NAME", c.Classifier.Model)
	c.Classifier.Version = GetEnv("MODEL_VERSION", c.Classifier.Version)
	c.Classifier.Timeout = GetEnvDuration("CLASSIFIER_TIMEOUT", c.Classifier.Timeout)

	c.Predictor.Workers = GetEnvInt("PREDICT_WORKERS", c.Predictor.Workers)
	c.Predictor.Normalize = GetEnv("NORMALIZE", c.Predictor.Normalize)

	c.Database.Host = GetEnv("PGHOST", c.Database.Host)
	c.Database.Port = GetEnvInt("PGPORT", c.Database.Port)
	c.Database.User = GetEnv("PGUSER", c.Database.User)
	c.Database.Password = GetEnv("PGPASSWORD", c.Database.Password)
	c.Database.Name = GetEnv("PGDATABASE", c.Database.Name)
	c.Database.SSLMode = GetEnv("PGSSLMODE", c.Database.SSLMode)
	c.Database.Table = GetEnv("SAMPLE_TABLE", c.Database.Table)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Classifier.Backend {
	case BackendServing:
		if c.Classifier.URL == "" || c.Classifier.Model == "" {
			errs = append(errs, errors.New("classifier: serving backend needs url and model"))
		}
	case BackendPostal:
	default:
		errs = append(errs, fmt.Errorf("classifier: unknown backend %q", c.Classifier.Backend))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, errors.New("classifier: timeout must be positive"))
	}
	if c.Predictor.Workers < 1 {
		errs = append(errs, errors.New("predictor: workers must be at least 1"))
	}
	if _, err := normalize.ByName(c.Predictor.Normalize); err != nil {
		errs = append(errs, fmt.Errorf("predictor: %w", err))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: invalid port %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
