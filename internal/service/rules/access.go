package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// AccessControl makes read/write/delete decisions for a principal against a
// rule. Decisions are pure; membership questions are delegated to the
// organization collaborator. Callers turn denials into the appropriate domain
// error (read denials collapse to not-found, write/delete denials are
// forbidden).
type AccessControl struct {
	members rulesrepo.OrganizationMembers
}

// NewAccessControl creates an access-control decision component.
func NewAccessControl(members rulesrepo.OrganizationMembers) *AccessControl {
	return &AccessControl{members: members}
}

// CanRead reports whether principal (nil = anonymous) may read the rule.
func (a *AccessControl) CanRead(ctx context.Context, principal *models.Principal, rule *rulemodels.Rule) (bool, error) {
	switch rule.Visibility {
	case rulemodels.VisibilityPublic:
		return true, nil
	case rulemodels.VisibilityPrivate:
		return principal != nil && rule.OwnedByUser(principal.UserID), nil
	case rulemodels.VisibilityOrganization:
		if principal == nil || rule.OrganizationID == nil {
			return false, nil
		}
		return a.members.IsMember(ctx, *rule.OrganizationID, principal.UserID)
	default:
		return false, fmt.Errorf("rule %s has unknown visibility %q", rule.ID, rule.Visibility)
	}
}

// CanWrite reports whether principal may update the rule. Only the owning
// user may update a user-owned rule; any member may update an
// organization-owned rule.
func (a *AccessControl) CanWrite(ctx context.Context, principal *models.Principal, rule *rulemodels.Rule) (bool, error) {
	if principal == nil {
		return false, nil
	}
	if rule.UserID != nil {
		return rule.OwnedByUser(principal.UserID), nil
	}
	if rule.OrganizationID != nil {
		return a.members.IsMember(ctx, *rule.OrganizationID, principal.UserID)
	}
	return false, nil
}

// CanDelete reports whether principal may delete the rule. The owning user
// always may. Organization-owned rules require membership, and
// organization-visibility rules additionally require a role that can delete
// team rules.
func (a *AccessControl) CanDelete(ctx context.Context, principal *models.Principal, rule *rulemodels.Rule) (bool, error) {
	if principal == nil {
		return false, nil
	}
	if rule.UserID != nil {
		return rule.OwnedByUser(principal.UserID), nil
	}
	if rule.OrganizationID == nil {
		return false, nil
	}

	if rule.Visibility != rulemodels.VisibilityOrganization {
		return a.members.IsMember(ctx, *rule.OrganizationID, principal.UserID)
	}

	role, err := a.members.MemberRole(ctx, *rule.OrganizationID, principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return role.CanDeleteTeamRules(), nil
}
