package db

import (
	"context"
	"database/sql"
	"time"

	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/payment-service/internal/repository"
)

// NewPostgres opens the pool and applies the wallet and payment schema.
func NewPostgres(dsn string, pool libdb.PoolOptions) (*sql.DB, error) {
	sqlDB, err := libdb.NewPostgresDB(dsn, pool)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := libdb.EnsureSchema(ctx, sqlDB, repository.Schema...); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}
