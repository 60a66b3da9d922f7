package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mattyatea/zxcv-sub000/internal/domain/repositories"
)

// RepositoryConfig holds the shared pieces every repository implementation
// needs.
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds environment-prefixed table names. Interpolating them into
// SQL is safe because prefixes are fixed at startup, never caller input.
type TableNames struct {
	Rules         string
	RuleVersions  string
	RuleStars     string
	Users         string
	Organizations string
	OrgMembers    string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Rules:         fmt.Sprintf("%srules", prefix),
		RuleVersions:  fmt.Sprintf("%srule_versions", prefix),
		RuleStars:     fmt.Sprintf("%srule_stars", prefix),
		Users:         fmt.Sprintf("%susers", prefix),
		Organizations: fmt.Sprintf("%sorganizations", prefix),
		OrgMembers:    fmt.Sprintf("%sorganization_members", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool and verifies it with a
// ping before handing it out.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in the context when there is
// one, otherwise the pool. Repositories call this on every query so they
// transparently join a TransactionManager.ExecTx scope.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
