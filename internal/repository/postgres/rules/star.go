package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
	"github.com/mattyatea/zxcv-sub000/internal/repository/postgres"
)

// PostgresStarRepository implements the StarRepository interface
type PostgresStarRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewStarRepository creates a new star repository
func NewStarRepository(config *postgres.RepositoryConfig) rulesrepo.StarRepository {
	return &PostgresStarRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a star edge
func (r *PostgresStarRepository) Create(ctx context.Context, star *rulemodels.RuleStar) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (rule_id, user_id, created_at) VALUES ($1, $2, $3)
	`, r.tables.RuleStars)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, star.RuleID, star.UserID, star.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, postgres.ConstraintStarEdge) {
			return &domain.ConflictError{
				Message:      "rule already starred",
				ResourceType: "star",
				ResourceID:   star.RuleID,
			}
		}
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("rule %s: %w", star.RuleID, domain.ErrNotFound)
		}
		return fmt.Errorf("create star: %w", err)
	}

	return nil
}

// Delete removes a star edge
func (r *PostgresStarRepository) Delete(ctx context.Context, ruleID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE rule_id = $1 AND user_id = $2
	`, r.tables.RuleStars)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ruleID, userID)
	if err != nil {
		return fmt.Errorf("delete star: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("star on rule %s: %w", ruleID, domain.ErrNotFound)
	}

	return nil
}

// Exists reports whether the (rule, user) edge is present
func (r *PostgresStarRepository) Exists(ctx context.Context, ruleID, userID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE rule_id = $1 AND user_id = $2)
	`, r.tables.RuleStars)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, ruleID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check star: %w", err)
	}

	return exists, nil
}
