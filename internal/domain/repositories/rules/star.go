package rules

import (
	"context"

	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
)

// StarRepository defines metadata-store operations on RuleStar edges. The
// compound (rule_id, user_id) uniqueness lives in the store and decides
// concurrent star races.
type StarRepository interface {
	// Create inserts a star edge. Returns a conflict error when the pair
	// already exists.
	Create(ctx context.Context, star *rulemodels.RuleStar) error

	// Delete removes a star edge. Returns a not-found error when the pair
	// does not exist.
	Delete(ctx context.Context, ruleID, userID string) error

	// Exists reports whether the (rule, user) edge is present.
	Exists(ctx context.Context, ruleID, userID string) (bool, error)
}
