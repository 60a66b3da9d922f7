package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
	"github.com/mattyatea/zxcv-sub000/internal/repository/postgres"
)

const ruleColumns = `id, name, user_id, organization_id, description, tags, visibility,
		downloads, stars, latest_version_id, created_at, updated_at, published_at`

// PostgresRuleRepository implements the RuleRepository interface
type PostgresRuleRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(config *postgres.RepositoryConfig) rulesrepo.RuleRepository {
	return &PostgresRuleRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new rule row
func (r *PostgresRuleRepository) Create(ctx context.Context, rule *rulemodels.Rule) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, user_id, organization_id, description, tags, visibility,
			downloads, stars, latest_version_id, created_at, updated_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, NULL, $8, $9, $10)
	`, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.UserID,
		rule.OrganizationID,
		rule.Description,
		rule.Tags,
		rule.Visibility,
		rule.CreatedAt,
		rule.UpdatedAt,
		rule.PublishedAt,
	)

	if err != nil {
		if postgres.IsUniqueViolation(err, postgres.ConstraintUserRuleName) ||
			postgres.IsUniqueViolation(err, postgres.ConstraintOrgRuleName) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("rule %q already exists in this namespace", rule.Name),
				ResourceType: "rule",
			}
		}
		return fmt.Errorf("create rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by id
func (r *PostgresRuleRepository) GetByID(ctx context.Context, id string) (*rulemodels.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, ruleColumns, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	rule, err := scanRule(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}

	return rule, nil
}

// GetByOwnerAndName retrieves a rule by its resolved owner and name
func (r *PostgresRuleRepository) GetByOwnerAndName(ctx context.Context, owner rulemodels.Owner, name string) (*rulemodels.Rule, error) {
	var ownerClause string
	switch owner.Kind {
	case rulemodels.OwnerUser:
		ownerClause = "user_id = $1"
	case rulemodels.OwnerOrganization:
		ownerClause = "organization_id = $1"
	default:
		return nil, fmt.Errorf("owner not resolved: %w", domain.ErrValidation)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s AND name = $2`,
		ruleColumns, r.tables.Rules, ownerClause)

	executor := postgres.GetExecutor(ctx, r.pool)
	rule, err := scanRule(executor.QueryRow(ctx, query, owner.ID, name))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("rule %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get rule by name: %w", err)
	}

	return rule, nil
}

// Update writes the rule's mutable scalar fields
func (r *PostgresRuleRepository) Update(ctx context.Context, rule *rulemodels.Rule) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET description = $1, tags = $2, visibility = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		rule.Description,
		rule.Tags,
		rule.Visibility,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, domain.ErrNotFound)
	}

	return nil
}

// SetLatestVersion advances the rule's latest-version pointer
func (r *PostgresRuleRepository) SetLatestVersion(ctx context.Context, ruleID, versionID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET latest_version_id = $1, updated_at = NOW() WHERE id = $2
	`, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, versionID, ruleID)
	if err != nil {
		return fmt.Errorf("set latest version: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the rule row; versions and stars cascade via foreign keys.
func (r *PostgresRuleRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// IncrementDownloads atomically bumps the download counter
func (r *PostgresRuleRepository) IncrementDownloads(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET downloads = downloads + 1 WHERE id = $1`, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// AdjustStars atomically applies delta to the star counter
func (r *PostgresRuleRepository) AdjustStars(ctx context.Context, id string, delta int) error {
	// GREATEST guards the counter against going negative if an unstar ever
	// races a concurrent delete-and-recreate.
	query := fmt.Sprintf(`UPDATE %s SET stars = GREATEST(stars + $1, 0) WHERE id = $2`, r.tables.Rules)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("adjust stars: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// List returns one visibility-filtered page of rules plus the total count
func (r *PostgresRuleRepository) List(ctx context.Context, opts *rulemodels.ListOptions, viewer *models.Principal) ([]rulemodels.Rule, int, error) {
	where, args := r.buildListPredicate(opts, viewer)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s r WHERE %s`, r.tables.Rules, where)

	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rules: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, prefixColumns("r", ruleColumns), r.tables.Rules, where, orderClause(opts.Sort), opts.Limit, opts.Offset())

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var items []rulemodels.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan rule: %w", err)
		}
		items = append(items, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rules: %w", err)
	}

	return items, total, nil
}

// Related returns rules sharing a tag or an owner with the given rule
func (r *PostgresRuleRepository) Related(ctx context.Context, rule *rulemodels.Rule, viewer *models.Principal, limit int) ([]rulemodels.Rule, error) {
	args := []interface{}{rule.ID, rule.Tags, rule.UserID, rule.OrganizationID}
	visibility := r.visibilityPredicate(viewer, &args)

	// Rank shared-tag matches above same-owner matches, newest first within
	// each band.
	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		WHERE r.id <> $1
		  AND (r.tags && $2
		       OR (r.user_id IS NOT DISTINCT FROM $3 AND $3 IS NOT NULL)
		       OR (r.organization_id IS NOT DISTINCT FROM $4 AND $4 IS NOT NULL))
		  AND %s
		ORDER BY (r.tags && $2) DESC, r.updated_at DESC
		LIMIT %d
	`, prefixColumns("r", ruleColumns), r.tables.Rules, visibility, limit)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("related rules: %w", err)
	}
	defer rows.Close()

	var items []rulemodels.Rule
	for rows.Next() {
		related, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan related rule: %w", err)
		}
		items = append(items, *related)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate related rules: %w", err)
	}

	return items, nil
}

// buildListPredicate assembles the WHERE clause shared by the count and page
// queries so the total can never disagree with the rows.
func (r *PostgresRuleRepository) buildListPredicate(opts *rulemodels.ListOptions, viewer *models.Principal) (string, []interface{}) {
	var args []interface{}
	clauses := []string{r.visibilityPredicate(viewer, &args)}

	if opts.Query != "" {
		args = append(args, "%"+opts.Query+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(r.name ILIKE $%d OR r.description ILIKE $%d)", n, n))
	}
	if len(opts.Tags) > 0 {
		args = append(args, opts.Tags)
		clauses = append(clauses, fmt.Sprintf("r.tags && $%d", len(args)))
	}
	if opts.Author != "" {
		args = append(args, opts.Author)
		clauses = append(clauses, fmt.Sprintf(
			"r.user_id = (SELECT id FROM %s WHERE username = $%d)", r.tables.Users, len(args)))
	}
	if opts.Organization != "" {
		args = append(args, opts.Organization)
		clauses = append(clauses, fmt.Sprintf(
			"r.organization_id = (SELECT id FROM %s WHERE name = $%d)", r.tables.Organizations, len(args)))
	}
	if opts.Visibility != "" {
		args = append(args, opts.Visibility)
		clauses = append(clauses, fmt.Sprintf("r.visibility = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// visibilityPredicate returns the read-visibility SQL predicate for viewer,
// appending any bind values to args. The same predicate backs single reads,
// listing, counting and related-rule queries.
func (r *PostgresRuleRepository) visibilityPredicate(viewer *models.Principal, args *[]interface{}) string {
	if viewer == nil {
		return "r.visibility = 'public'"
	}

	*args = append(*args, viewer.UserID)
	n := len(*args)
	return fmt.Sprintf(`(r.visibility = 'public'
		OR (r.visibility = 'private' AND r.user_id = $%d)
		OR (r.visibility = 'organization' AND r.organization_id IN (
			SELECT organization_id FROM %s WHERE user_id = $%d)))`,
		n, r.tables.OrgMembers, n)
}

func orderClause(sort rulemodels.SortKey) string {
	switch sort {
	case rulemodels.SortCreated:
		return "r.created_at DESC"
	case rulemodels.SortName:
		return "r.name ASC"
	default:
		return "r.updated_at DESC"
	}
}

// prefixColumns qualifies each column in a comma-separated list with a table
// alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*rulemodels.Rule, error) {
	var rule rulemodels.Rule
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.UserID,
		&rule.OrganizationID,
		&rule.Description,
		&rule.Tags,
		&rule.Visibility,
		&rule.Downloads,
		&rule.Stars,
		&rule.LatestVersionID,
		&rule.CreatedAt,
		&rule.UpdatedAt,
		&rule.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
