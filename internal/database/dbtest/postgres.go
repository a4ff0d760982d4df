// Package dbtest starts a throwaway Postgres with the schema migrated, for integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"ecommerce-api/internal/database"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationsDir resolves the repository's migrations directory independent of the caller's working directory
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// StartPostgres runs a postgres container, applies every migration and returns the pool with a teardown func
func StartPostgres(ctx context.Context) (*sql.DB, func(context.Context) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, err
	}

	teardown := func(ctx context.Context) error {
		return dbContainer.Terminate(ctx)
	}

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, teardown, err
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, teardown, err
	}

	if err := database.RunMigrations(db, MigrationsDir(), zap.NewNop()); err != nil {
		db.Close()
		return nil, teardown, fmt.Errorf("migrate test database: %w", err)
	}

	return db, func(ctx context.Context) error {
		db.Close()
		return teardown(ctx)
	}, nil
}
