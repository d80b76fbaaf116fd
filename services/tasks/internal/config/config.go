package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Driver   string // memory, postgres, pgx, mysql или sqlite3
	URL      string // готовый DSN, перекрывает поля выше
}

type Config struct {
	TasksPort       string
	AuthGRPCAddr    string
	AuthTimeout     time.Duration
	LogLevel        string
	SeedDemo        bool
	ShutdownTimeout time.Duration
	DB              DatabaseConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		TasksPort:    getEnv("TASKS_PORT", "8082"),
		AuthGRPCAddr: getEnv("AUTH_GRPC_ADDR", "localhost:50051"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", ""),
			User:     getEnv("DB_USER", "tasks_user"),
			Password: getEnv("DB_PASSWORD", "tasks_pass"),
			DBName:   getEnv("DB_NAME", "tasks_db"),
			Driver:   getEnv("DB_DRIVER", "memory"),
			URL:      os.Getenv("DB_URL"),
		},
	}

	var err error
	if cfg.AuthTimeout, err = time.ParseDuration(getEnv("AUTH_TIMEOUT", "2s")); err != nil {
		return nil, fmt.Errorf("AUTH_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	// демо-задачи по умолчанию только для in-memory хранилища
	defaultSeed := strconv.FormatBool(cfg.DB.Driver == "memory")
	if cfg.SeedDemo, err = strconv.ParseBool(getEnv("SEED_DEMO", defaultSeed)); err != nil {
		return nil, fmt.Errorf("SEED_DEMO: %w", err)
	}

	switch cfg.DB.Driver {
	case "memory", "postgres", "pgx", "mysql", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (db *DatabaseConfig) DSN() string {
	if db.URL != "" {
		return db.URL
	}
	switch db.Driver {
	case "postgres", "pgx":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			db.Host, db.portOr("5432"), db.User, db.Password, db.DBName)
	case "mysql":
		// parseTime нужен для сканирования TIMESTAMP в time.Time,
		// clientFoundRows - чтобы UPDATE без изменений возвращал найденные строки
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&clientFoundRows=true",
			db.User, db.Password, db.Host, db.portOr("3306"), db.DBName)
	case "sqlite3":
		return fmt.Sprintf("file:%s.db?_foreign_keys=on", db.DBName)
	default:
		return ""
	}
}

func (db *DatabaseConfig) portOr(def string) string {
	if db.Port != "" {
		return db.Port
	}
	return def
}
