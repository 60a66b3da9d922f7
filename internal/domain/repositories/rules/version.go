package rules

import (
	"context"

	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
)

// VersionRepository defines metadata-store operations on RuleVersion rows.
// Version rows are append-only: there is no update and no single-version
// delete; versions disappear only when their rule is deleted.
type VersionRepository interface {
	// Create inserts a version row. Returns a conflict error when the
	// (rule_id, major, minor) key already exists; the version manager treats
	// that as a lost optimistic race and retries with a fresh read.
	Create(ctx context.Context, version *rulemodels.RuleVersion) error

	// GetByID retrieves a version by id
	GetByID(ctx context.Context, id string) (*rulemodels.RuleVersion, error)

	// GetByNumber retrieves the version of a rule with the given number
	GetByNumber(ctx context.Context, ruleID string, number rulemodels.VersionNumber) (*rulemodels.RuleVersion, error)

	// Latest retrieves the highest-numbered version of a rule
	Latest(ctx context.Context, ruleID string) (*rulemodels.RuleVersion, error)

	// ListByRule returns all versions of a rule ordered by version number
	// ascending.
	ListByRule(ctx context.Context, ruleID string) ([]rulemodels.RuleVersion, error)
}
