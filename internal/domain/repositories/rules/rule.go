package rules

import (
	"context"

	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
)

// RuleRepository defines metadata-store operations on Rule rows.
type RuleRepository interface {
	// Create inserts a new rule row. Returns a conflict error when a rule of
	// the same name already exists in the owning namespace.
	Create(ctx context.Context, rule *rulemodels.Rule) error

	// GetByID retrieves a rule by id
	GetByID(ctx context.Context, id string) (*rulemodels.Rule, error)

	// GetByOwnerAndName retrieves a rule by its resolved owner and name
	GetByOwnerAndName(ctx context.Context, owner rulemodels.Owner, name string) (*rulemodels.Rule, error)

	// Update writes the rule's mutable scalar fields (description, tags,
	// visibility, updated_at). Name and ownership are immutable post-creation.
	Update(ctx context.Context, rule *rulemodels.Rule) error

	// SetLatestVersion advances the rule's latest-version pointer. Callers run
	// this inside the same transaction as the version insert.
	SetLatestVersion(ctx context.Context, ruleID, versionID string) error

	// Delete removes the rule row, cascading its versions and stars.
	Delete(ctx context.Context, id string) error

	// List returns one visibility-filtered page of rules plus the total count
	// under the same predicate. viewer is nil for anonymous callers.
	List(ctx context.Context, opts *rulemodels.ListOptions, viewer *models.Principal) ([]rulemodels.Rule, int, error)

	// Related returns up to limit rules sharing a tag or an owner with the
	// given rule, excluding the rule itself, visibility-filtered for viewer.
	Related(ctx context.Context, rule *rulemodels.Rule, viewer *models.Principal, limit int) ([]rulemodels.Rule, error)

	// IncrementDownloads atomically bumps the download counter by 1.
	IncrementDownloads(ctx context.Context, id string) error

	// AdjustStars atomically applies delta to the star counter. Callers run
	// this inside the same transaction as the star row insert or delete so the
	// counter never drifts from the row count.
	AdjustStars(ctx context.Context, id string, delta int) error
}
