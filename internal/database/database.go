package database

import (
	"context"
	"fmt"

	"openlet/internal/config"
	"openlet/internal/logger"

	"github.com/jmoiron/sqlx"
	go_ora "github.com/sijms/go-ora/v2"
)

// DriverName is the name go-ora registers with database/sql.
const DriverName = "oracle"

// DSN builds a go-ora connection URL from the db config section.
func DSN(cfg config.DBConfig) string {
	return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.DBName, cfg.User, cfg.Password, nil)
}

// NewSQLXOracleDB connects and pings the database.
func NewSQLXOracleDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Oracle database: %w", err)
	}

	logger.Get().Info("Successfully connected to Oracle database")
	return db, nil
}
