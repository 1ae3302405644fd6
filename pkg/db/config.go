package db

import (
	"time"

	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
)

type Config struct {
	Type             string
	Host             string
	Port             string
	Name             string
	User             string
	Password         string
	SSLMode          string
	MaxIdleConn      int
	MaxOpenConn      int
	ConnMaxLifetime  int
	ConnMaxIdleTime  int
	StatementTimeout time.Duration
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Type:             cfg.DBType,
		Host:             cfg.DBHost,
		Port:             cfg.DBPort,
		Name:             cfg.DBName,
		User:             cfg.DBUser,
		Password:         cfg.DBPassword,
		SSLMode:          cfg.DBSSLMode,
		MaxIdleConn:      cfg.DBMaxIdleConn,
		MaxOpenConn:      cfg.DBMaxOpenConn,
		ConnMaxLifetime:  cfg.DBConnMaxLifetime,
		ConnMaxIdleTime:  cfg.DBConnMaxIdleTime,
		StatementTimeout: cfg.DBStatementTimeout,
	}
}
