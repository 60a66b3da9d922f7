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

const versionColumns = `id, rule_id, major, minor, content_key, changelog, created_by,
		description, tags, created_at`

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *postgres.RepositoryConfig) rulesrepo.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a version row. The (rule_id, major, minor) unique key turns
// concurrent allocations of the same number into a conflict the version
// manager retries on.
func (r *PostgresVersionRepository) Create(ctx context.Context, version *rulemodels.RuleVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, rule_id, major, minor, content_key, changelog, created_by,
			description, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.RuleVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		version.ID,
		version.RuleID,
		version.Number.Major,
		version.Number.Minor,
		version.ContentKey,
		version.Changelog,
		version.CreatedBy,
		version.Description,
		version.Tags,
		version.CreatedAt,
	)

	if err != nil {
		// Only the number key signals an allocation race worth retrying.
		if postgres.IsUniqueViolation(err, postgres.ConstraintVersionNumber) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %s of rule %s already exists", version.Number, version.RuleID),
				ResourceType: "version",
			}
		}
		if postgres.IsForeignKeyViolation(err) {
			// Rule deleted out from under the insert.
			return fmt.Errorf("rule %s: %w", version.RuleID, domain.ErrNotFound)
		}
		return fmt.Errorf("create version: %w", err)
	}

	return nil
}

// GetByID retrieves a version by id
func (r *PostgresVersionRepository) GetByID(ctx context.Context, id string) (*rulemodels.RuleVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, versionColumns, r.tables.RuleVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	version, err := scanVersion(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	return version, nil
}

// GetByNumber retrieves the version of a rule with the given number
func (r *PostgresVersionRepository) GetByNumber(ctx context.Context, ruleID string, number rulemodels.VersionNumber) (*rulemodels.RuleVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE rule_id = $1 AND major = $2 AND minor = $3
	`, versionColumns, r.tables.RuleVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	version, err := scanVersion(executor.QueryRow(ctx, query, ruleID, number.Major, number.Minor))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("version %s of rule %s: %w", number, ruleID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version by number: %w", err)
	}

	return version, nil
}

// Latest retrieves the highest-numbered version of a rule
func (r *PostgresVersionRepository) Latest(ctx context.Context, ruleID string) (*rulemodels.RuleVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE rule_id = $1
		ORDER BY major DESC, minor DESC
		LIMIT 1
	`, versionColumns, r.tables.RuleVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	version, err := scanVersion(executor.QueryRow(ctx, query, ruleID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("rule %s has no versions: %w", ruleID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get latest version: %w", err)
	}

	return version, nil
}

// ListByRule returns all versions of a rule ordered by version number ascending
func (r *PostgresVersionRepository) ListByRule(ctx context.Context, ruleID string) ([]rulemodels.RuleVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE rule_id = $1
		ORDER BY major ASC, minor ASC
	`, versionColumns, r.tables.RuleVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []rulemodels.RuleVersion
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return versions, nil
}

func scanVersion(row rowScanner) (*rulemodels.RuleVersion, error) {
	var version rulemodels.RuleVersion
	err := row.Scan(
		&version.ID,
		&version.RuleID,
		&version.Number.Major,
		&version.Number.Minor,
		&version.ContentKey,
		&version.Changelog,
		&version.CreatedBy,
		&version.Description,
		&version.Tags,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &version, nil
}
