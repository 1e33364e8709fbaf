// Package config содержит логику чтения конфигурации бота.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации бота.
type Config struct {
	BotToken       string        `env:"BOT_TOKEN"`
	DatabaseChatID int64         `env:"DATABASE_CHAT_ID"`
	RootAdminID    int64         `env:"ROOT_ADMIN_ID"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
	AccountPrice   int64         `env:"ACCOUNT_PRICE"`
	OpsAddress     string        `env:"OPS_ADDRESS"`
	OpsToken       string        `env:"OPS_TOKEN"`
	BackupInterval time.Duration `env:"BACKUP_INTERVAL"`
	StateFile      string        `env:"STATE_FILE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения; окружение имеет приоритет.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envToken := cfg.BotToken
	envChatID := cfg.DatabaseChatID
	envRootAdmin := cfg.RootAdminID
	envPassword := cfg.AdminPassword
	envPrice := cfg.AccountPrice
	envOpsAddress := cfg.OpsAddress
	envOpsToken := cfg.OpsToken
	envInterval := cfg.BackupInterval
	envStateFile := cfg.StateFile

	flag.StringVar(&cfg.BotToken, "t", "", "telegram bot token")
	flag.Int64Var(&cfg.DatabaseChatID, "c", 0, "database chat id")
	flag.Int64Var(&cfg.RootAdminID, "r", 0, "root admin id")
	flag.StringVar(&cfg.AdminPassword, "p", "", "admin shared password")
	flag.Int64Var(&cfg.AccountPrice, "price", 500, "account price in paise")
	flag.StringVar(&cfg.OpsAddress, "a", "localhost:8091", "address and port for ops HTTP server")
	flag.StringVar(&cfg.OpsToken, "ops-token", "", "token for ops HTTP endpoints")
	flag.DurationVar(&cfg.BackupInterval, "backup", 10*time.Minute, "periodic snapshot interval")
	flag.StringVar(&cfg.StateFile, "f", "", "file-backed store path (instead of telegram chat)")

	flag.Parse()

	if envToken != "" {
		cfg.BotToken = envToken
	}
	if envChatID != 0 {
		cfg.DatabaseChatID = envChatID
	}
	if envRootAdmin != 0 {
		cfg.RootAdminID = envRootAdmin
	}
	if envPassword != "" {
		cfg.AdminPassword = envPassword
	}
	if envPrice != 0 {
		cfg.AccountPrice = envPrice
	}
	if envOpsAddress != "" {
		cfg.OpsAddress = envOpsAddress
	}
	if envOpsToken != "" {
		cfg.OpsToken = envOpsToken
	}
	if envInterval != 0 {
		cfg.BackupInterval = envInterval
	}
	if envStateFile != "" {
		cfg.StateFile = envStateFile
	}

	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.RootAdminID == 0 {
		return nil, errors.New("root admin id is required")
	}
	if cfg.StateFile == "" && cfg.DatabaseChatID == 0 {
		return nil, errors.New("database chat id or state file is required")
	}

	return cfg, nil
}
