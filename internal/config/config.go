package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/homeledger/homeledger/internal/model"
)

// FileName is the default config file name.
const FileName = "homeledger.yaml"

// Environment variables that override the config file.
const (
	EnvDBDriver  = "HOMELEDGER_DB_DRIVER"
	EnvDBDSN     = "HOMELEDGER_DB_DSN"
	EnvAddr      = "HOMELEDGER_ADDR"
	EnvJWTSecret = "HOMELEDGER_JWT_SECRET"
	EnvLogLevel  = "HOMELEDGER_LOG_LEVEL"
)

// Config represents the top-level homeledger.yaml configuration.
type Config struct {
	Database     DatabaseConfig `yaml:"database"`
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
	Import       ImportConfig   `yaml:"import"`
	Sweep        SweepConfig    `yaml:"sweep"`
	BankAccounts []BankAccount  `yaml:"bank_accounts,omitempty"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or mysql
	DSN    string `yaml:"dsn"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	JWTSecret    string        `yaml:"jwt_secret,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig controls logging and the run log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	RunLog string `yaml:"run_log"`
}

// ImportConfig points at the payload inbox.
type ImportConfig struct {
	Dir string `yaml:"dir"`
}

// SweepConfig controls the duplicate sweeper.
type SweepConfig struct {
	MergeAnnotations bool `yaml:"merge_annotations"`
}

// BankAccount is an account whose statements can be imported.
type BankAccount struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	LastFour string `yaml:"last_four,omitempty"`
}

// Load reads a homeledger.yaml file from disk. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "homeledger.db",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			RunLog: "logs/runs.csv",
		},
		Import: ImportConfig{
			Dir: "import",
		},
	}
}

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error; existing variables are not overwritten.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any HOMELEDGER_* variables that are set.
func (c *Config) ApplyEnv() {
	c.Database.Driver = getEnv(EnvDBDriver, c.Database.Driver)
	c.Database.DSN = getEnv(EnvDBDSN, c.Database.DSN)
	c.Server.Addr = getEnv(EnvAddr, c.Server.Addr)
	c.Server.JWTSecret = getEnv(EnvJWTSecret, c.Server.JWTSecret)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)
}

// Resolve makes the relative file paths in cfg relative to baseDir. The DSN is
// only treated as a path for sqlite.
func (c *Config) Resolve(baseDir string) {
	if strings.EqualFold(c.Database.Driver, "sqlite") && !strings.HasPrefix(c.Database.DSN, "file:") {
		c.Database.DSN = resolvePath(baseDir, c.Database.DSN)
	}
	c.Import.Dir = resolvePath(baseDir, c.Import.Dir)
	c.Log.RunLog = resolvePath(baseDir, c.Log.RunLog)
}

// Accounts converts the configured bank accounts to the model type.
func (c *Config) Accounts() []model.BankAccount {
	out := make([]model.BankAccount, len(c.BankAccounts))
	for i, a := range c.BankAccounts {
		out[i] = model.BankAccount{
			ID:       a.ID,
			Name:     a.Name,
			Type:     model.AccountType(a.Type),
			LastFour: a.LastFour,
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultVal
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
