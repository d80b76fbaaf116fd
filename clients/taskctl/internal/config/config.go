// Package config собирает настройки taskctl: флаги > переменные TASKBOARD_* > config.yaml > значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL  = "http://localhost:8082/v1"
	DefaultAuthURL = "http://localhost:8081/v1"
	DefaultWSURL   = "ws://localhost:8082/v1/ws"

	appDir     = "taskboard"
	configFile = "config.yaml"
)

type Config struct {
	APIURL   string        `mapstructure:"api_url"`
	AuthURL  string        `mapstructure:"auth_url"`
	WSURL    string        `mapstructure:"ws_url"`
	StateDir string        `mapstructure:"state_dir"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultStateDir - ~/.config/taskboard (или аналог ОС)
func DefaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "."+appDir)
	}
	return filepath.Join(dir, appDir)
}

// Load читает конфигурацию. stateDir из флага имеет приоритет над TASKBOARD_STATE_DIR
func Load(stateDir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TASKBOARD")
	v.AutomaticEnv()

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("auth_url", DefaultAuthURL)
	v.SetDefault("ws_url", DefaultWSURL)
	v.SetDefault("state_dir", DefaultStateDir())
	v.SetDefault("timeout", 10*time.Second)

	if stateDir != "" {
		v.Set("state_dir", stateDir)
	}

	path := filepath.Join(v.GetString("state_dir"), configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.APIURL == "" || cfg.AuthURL == "" || cfg.WSURL == "" {
		return nil, errors.New("api_url, auth_url and ws_url must not be empty")
	}
	return cfg, nil
}
