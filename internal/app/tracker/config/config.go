package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/repository"
)

const (
	DefaultMetricsFilePath = "/app/config/health_metrics.json"
	DefaultUpdateInterval  = 7 * 24 * time.Hour
	DefaultDBName          = "healthcheck"
	DefaultDBUser          = "healthdbuser"
	DefaultDBHost          = "localhost"
	DefaultDBPort          = "5432"
	DefaultAdminDBName     = "postgres"
	DefaultMetricsPort     = 9100
	DefaultLogLevel        = "info"
)

var (
	ErrPasswordRequired = errors.New("database password is required")
	ErrInvalidInterval  = errors.New("update interval must be greater than 0")
	ErrInvalidPort      = errors.New("metrics port must be between 1 and 65535")
)

type Config struct {
	MetricsFilePath string
	UpdateInterval  time.Duration
	MetricsPort     int
	LogLevel        string

	DBName      string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      string
	AdminDBName string
}

// fileConfig описывает формат JSON/YAML-конфига.
// Поля указаны как указатели для различения отсутствующих значений.
type fileConfig struct {
	MetricsFilePath *string `json:"metrics_file_path" yaml:"metrics_file_path"`
	UpdateInterval  *int    `json:"update_interval" yaml:"update_interval"` // секунды, как UPDATE_INTERVAL
	MetricsPort     *int    `json:"metrics_port" yaml:"metrics_port"`
	LogLevel        *string `json:"log_level" yaml:"log_level"`

	Postgres struct {
		DB       *string `json:"db" yaml:"db"`
		User     *string `json:"user" yaml:"user"`
		Password *string `json:"password" yaml:"password"`
		Host     *string `json:"host" yaml:"host"`
		Port     *string `json:"port" yaml:"port"`
		AdminDB  *string `json:"admin_db" yaml:"admin_db"`
	} `json:"postgres" yaml:"postgres"`
}

func defaults() *Config {
	return &Config{
		MetricsFilePath: DefaultMetricsFilePath,
		UpdateInterval:  DefaultUpdateInterval,
		MetricsPort:     DefaultMetricsPort,
		LogLevel:        DefaultLogLevel,
		DBName:          DefaultDBName,
		DBUser:          DefaultDBUser,
		DBHost:          DefaultDBHost,
		DBPort:          DefaultDBPort,
		AdminDBName:     DefaultAdminDBName,
	}
}

// Load builds the configuration from defaults, an optional config file,
// command-line flags and environment variables, in increasing precedence.
func Load(args []string) (*Config, error) {
	cfg := defaults()

	fs := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", os.Getenv("CONFIG"), "Path to JSON or YAML config file")
	metricsFile := fs.StringP("file", "f", "", "Path to the health metrics JSON file")
	interval := fs.IntP("interval", "i", 0, "Update interval in seconds")
	port := fs.IntP("port", "p", 0, "Metrics HTTP port")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dbHost := fs.String("db-host", "", "PostgreSQL host")
	dbPort := fs.String("db-port", "", "PostgreSQL port")
	dbName := fs.String("db-name", "", "PostgreSQL database")
	dbUser := fs.String("db-user", "", "PostgreSQL user")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// 1) Значения из файла как дефолты
	if *configPath != "" {
		if err := applyFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}

	// 2) Флаги поверх файла
	if fs.Changed("file") {
		cfg.MetricsFilePath = *metricsFile
	}
	if fs.Changed("interval") {
		cfg.UpdateInterval = time.Duration(*interval) * time.Second
	}
	if fs.Changed("port") {
		cfg.MetricsPort = *port
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("db-host") {
		cfg.DBHost = *dbHost
	}
	if fs.Changed("db-port") {
		cfg.DBPort = *dbPort
	}
	if fs.Changed("db-name") {
		cfg.DBName = *dbName
	}
	if fs.Changed("db-user") {
		cfg.DBUser = *dbUser
	}

	// 3) Переменные окружения
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	if fc.MetricsFilePath != nil && *fc.MetricsFilePath != "" {
		cfg.MetricsFilePath = *fc.MetricsFilePath
	}
	if fc.UpdateInterval != nil {
		cfg.UpdateInterval = time.Duration(*fc.UpdateInterval) * time.Second
	}
	if fc.MetricsPort != nil {
		cfg.MetricsPort = *fc.MetricsPort
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	setString(&cfg.DBName, fc.Postgres.DB)
	setString(&cfg.DBUser, fc.Postgres.User)
	setString(&cfg.DBPassword, fc.Postgres.Password)
	setString(&cfg.DBHost, fc.Postgres.Host)
	setString(&cfg.DBPort, fc.Postgres.Port)
	setString(&cfg.AdminDBName, fc.Postgres.AdminDB)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("METRICS_FILE_PATH"); v != "" {
		cfg.MetricsFilePath = v
	}
	if v := os.Getenv("UPDATE_INTERVAL"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid UPDATE_INTERVAL %q: %w", v, err)
		}
		cfg.UpdateInterval = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_PORT %q: %w", v, err)
		}
		cfg.MetricsPort = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.DBUser = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.DBPassword = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.DBHost = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		cfg.DBPort = v
	}
	if v := os.Getenv("POSTGRES_ADMIN_DB"); v != "" {
		cfg.AdminDBName = v
	}
	return nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return ErrPasswordRequired
	}
	if c.UpdateInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.MetricsPort)
	}
	return nil
}

func (c *Config) MetricsAddress() string {
	return ":" + strconv.Itoa(c.MetricsPort)
}

func (c *Config) ConnParams() repository.ConnParams {
	return repository.ConnParams{
		Host:          c.DBHost,
		Port:          c.DBPort,
		User:          c.DBUser,
		Password:      c.DBPassword,
		Database:      c.DBName,
		AdminDatabase: c.AdminDBName,
	}
}
