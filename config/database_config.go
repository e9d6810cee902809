package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type Database struct {
	*sqlx.DB
	QueryTimeout time.Duration
}

func NewDatabaseConnection(dbDriver string, cfg DatabaseConfig) (*Database, error) {
	database, err := sqlx.Connect(dbDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		database.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		database.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		database.SetConnMaxLifetime(cfg.ConnMaxLifetime.Std())
	}

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("ошибка пинга БД: %w", err)
	}

	log.Info().Msg("Подключение к БД успешно выполнено")
	return NewDatabase(database, cfg.QueryTimeout.Std()), nil
}

// NewDatabase : оборачивает готовое подключение, используется и в тестах с sqlmock
func NewDatabase(db *sqlx.DB, queryTimeout time.Duration) *Database {
	return &Database{DB: db, QueryTimeout: queryTimeout}
}

// WithQueryTimeout : ограничивает время выполнения одного запроса к БД
func (db *Database) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}

func (db *Database) Close() error {
	err := db.DB.Close()
	if err != nil {
		return fmt.Errorf("ошибка закрытия соединения с БД: %w", err)
	}

	return nil
}
