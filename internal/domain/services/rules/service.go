package rules

import (
	"context"

	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
)

// RuleService is the engine façade the transport layer consumes in-process.
// Every method takes the resolved caller (nil = anonymous) and returns plain
// result structs or a domain error; raw storage errors never cross this
// boundary.
type RuleService interface {
	// Create publishes a new rule, creating version 1.0 atomically with it.
	Create(ctx context.Context, principal *models.Principal, req *CreateRuleRequest) (*rulemodels.Rule, *rulemodels.RuleVersion, error)

	// Update appends a new version to an existing rule and advances the
	// latest-version pointer.
	Update(ctx context.Context, principal *models.Principal, ruleID string, req *UpdateRuleRequest) (*rulemodels.RuleVersion, error)

	// GetByPath resolves an "@owner/name" (or bare "name") path and returns
	// the rule, subject to the read-visibility rules.
	GetByPath(ctx context.Context, principal *models.Principal, path string) (*rulemodels.Rule, error)

	// Get returns a rule by id, subject to the read-visibility rules.
	Get(ctx context.Context, principal *models.Principal, ruleID string) (*rulemodels.Rule, error)

	// Content returns the content bytes of a version. An empty version number
	// selects the latest version. Fetches count as downloads.
	Content(ctx context.Context, principal *models.Principal, ruleID, versionNumber string) ([]byte, error)

	// Versions lists a rule's version history ordered by version number
	// ascending.
	Versions(ctx context.Context, principal *models.Principal, ruleID string) ([]rulemodels.VersionSummary, error)

	// Version returns one specific version of a rule.
	Version(ctx context.Context, principal *models.Principal, ruleID, versionNumber string) (*rulemodels.RuleVersion, error)

	// List returns a visibility-filtered page of rules.
	List(ctx context.Context, principal *models.Principal, opts *rulemodels.ListOptions) (*rulemodels.ListResults, error)

	// Search is List with a required free-text query.
	Search(ctx context.Context, principal *models.Principal, opts *rulemodels.ListOptions) (*rulemodels.ListResults, error)

	// RecordView bumps the rule's view counter best-effort. It never returns
	// an error to the caller; failures are logged and suppressed.
	RecordView(ctx context.Context, principal *models.Principal, ruleID string)

	// Star adds a star edge for the caller and bumps the counter.
	Star(ctx context.Context, principal *models.Principal, ruleID string) error

	// Unstar removes the caller's star edge and drops the counter.
	Unstar(ctx context.Context, principal *models.Principal, ruleID string) error

	// Related returns up to limit rules related to the given one by shared
	// tags or owner, visibility-filtered like a listing.
	Related(ctx context.Context, principal *models.Principal, ruleID string, limit int) ([]rulemodels.Rule, error)

	// Delete removes a rule, all its versions and their content objects.
	Delete(ctx context.Context, principal *models.Principal, ruleID string) error
}

// CreateRuleRequest carries a validated publish request. Path addresses the
// target namespace; an ownerless path publishes under the caller.
type CreateRuleRequest struct {
	Path        string   `json:"path"` // "@owner/name" or "name"
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  string   `json:"visibility"` // public, private, organization
	Content     []byte   `json:"content"`
	Changelog   string   `json:"changelog,omitempty"`
}

// UpdateRuleRequest carries an update. Nil pointer fields keep the current
// value; the rule name is immutable and has no field here.
type UpdateRuleRequest struct {
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  *string  `json:"visibility,omitempty"`
	Content     []byte   `json:"content,omitempty"` // nil = content unchanged
	Changelog   string   `json:"changelog,omitempty"`
	MajorBump   bool     `json:"major_bump,omitempty"`
}
