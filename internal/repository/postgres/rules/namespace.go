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

// PostgresNamespaceRepository implements NamespaceRepository and
// OrganizationMembers against the users, organizations and
// organization_members tables.
type PostgresNamespaceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewNamespaceRepository creates a new namespace repository
func NewNamespaceRepository(config *postgres.RepositoryConfig) *PostgresNamespaceRepository {
	return &PostgresNamespaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

var (
	_ rulesrepo.NamespaceRepository = (*PostgresNamespaceRepository)(nil)
	_ rulesrepo.OrganizationMembers = (*PostgresNamespaceRepository)(nil)
)

// GetUserByUsername looks a user up by username
func (r *PostgresNamespaceRepository) GetUserByUsername(ctx context.Context, username string) (*rulemodels.User, error) {
	query := fmt.Sprintf(`SELECT id, username FROM %s WHERE username = $1`, r.tables.Users)

	var user rulemodels.User
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// GetOrganizationByName looks an organization up by name
func (r *PostgresNamespaceRepository) GetOrganizationByName(ctx context.Context, name string) (*rulemodels.Organization, error) {
	query := fmt.Sprintf(`SELECT id, name FROM %s WHERE name = $1`, r.tables.Organizations)

	var org rulemodels.Organization
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, name).Scan(&org.ID, &org.Name)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("organization %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &org, nil
}

// IsMember reports whether the user belongs to the organization
func (r *PostgresNamespaceRepository) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE organization_id = $1 AND user_id = $2)
	`, r.tables.OrgMembers)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, orgID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return exists, nil
}

// MemberRole returns the user's role in the organization
func (r *PostgresNamespaceRepository) MemberRole(ctx context.Context, orgID, userID string) (rulemodels.MemberRole, error) {
	query := fmt.Sprintf(`
		SELECT role FROM %s WHERE organization_id = $1 AND user_id = $2
	`, r.tables.OrgMembers)

	var role rulemodels.MemberRole
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, orgID, userID).Scan(&role)
	if err != nil {
		if postgres.IsNoRows(err) {
			return "", fmt.Errorf("membership in organization %s: %w", orgID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get member role: %w", err)
	}

	return role, nil
}
