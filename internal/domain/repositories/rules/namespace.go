package rules

import (
	"context"

	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
)

// NamespaceRepository resolves namespace segments to their owning principal.
// The store enforces that user and organization names are globally unique
// across both namespaces; the resolver depends on that invariant.
type NamespaceRepository interface {
	// GetUserByUsername looks a user up by username
	GetUserByUsername(ctx context.Context, username string) (*rulemodels.User, error)

	// GetOrganizationByName looks an organization up by name
	GetOrganizationByName(ctx context.Context, name string) (*rulemodels.Organization, error)
}

// OrganizationMembers is the organization-membership collaborator. Membership
// administration (invites, role changes) happens elsewhere; the engine only
// asks questions.
type OrganizationMembers interface {
	// IsMember reports whether the user belongs to the organization.
	IsMember(ctx context.Context, orgID, userID string) (bool, error)

	// MemberRole returns the user's role in the organization, or a not-found
	// error when the user is not a member.
	MemberRole(ctx context.Context, orgID, userID string) (rulemodels.MemberRole, error)
}
