package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// RulePath is a parsed "@owner/name" address. Owner is empty for bare "name"
// paths, which resolve against the caller.
type RulePath struct {
	Owner    string
	RuleName string
}

// ParseRulePath parses a rule address. The grammar is an optional leading
// "@", then either "name" or "owner/name". Empty paths, empty segments and
// more than two segments are validation failures, never not-found.
func ParseRulePath(path string) (RulePath, error) {
	trimmed := strings.TrimPrefix(path, "@")
	if trimmed == "" {
		return RulePath{}, &domain.ValidationError{Message: "rule path cannot be empty"}
	}

	segments := strings.Split(trimmed, "/")
	switch len(segments) {
	case 1:
		if segments[0] == "" {
			return RulePath{}, &domain.ValidationError{Message: fmt.Sprintf("invalid rule path %q", path)}
		}
		return RulePath{RuleName: segments[0]}, nil
	case 2:
		if segments[0] == "" || segments[1] == "" {
			return RulePath{}, &domain.ValidationError{Message: fmt.Sprintf("invalid rule path %q", path)}
		}
		return RulePath{Owner: segments[0], RuleName: segments[1]}, nil
	default:
		return RulePath{}, &domain.ValidationError{Message: fmt.Sprintf("invalid rule path %q: too many segments", path)}
	}
}

// Resolver resolves namespace segments to their owning principal. Names are
// globally unique across users and organizations (store-enforced), so at most
// one lookup matches.
type Resolver struct {
	namespaces rulesrepo.NamespaceRepository
}

// NewResolver creates a namespace resolver.
func NewResolver(namespaces rulesrepo.NamespaceRepository) *Resolver {
	return &Resolver{namespaces: namespaces}
}

// Resolve maps an owner segment to a user or organization, trying users
// first. An owner matching neither namespace is a not-found condition naming
// the owner.
func (r *Resolver) Resolve(ctx context.Context, owner string) (rulemodels.Owner, error) {
	user, err := r.namespaces.GetUserByUsername(ctx, owner)
	if err == nil {
		return rulemodels.Owner{Kind: rulemodels.OwnerUser, ID: user.ID, Name: user.Username}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return rulemodels.Owner{}, fmt.Errorf("resolve owner %q: %w", owner, err)
	}

	org, err := r.namespaces.GetOrganizationByName(ctx, owner)
	if err == nil {
		return rulemodels.Owner{Kind: rulemodels.OwnerOrganization, ID: org.ID, Name: org.Name}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return rulemodels.Owner{}, fmt.Errorf("resolve owner %q: %w", owner, err)
	}

	return rulemodels.Owner{}, &domain.NotFoundError{Message: fmt.Sprintf("owner %q not found", owner)}
}

// ResolveForPrincipal resolves a parsed path's owner, falling back to the
// caller for ownerless paths. Anonymous callers cannot use ownerless paths.
func (r *Resolver) ResolveForPrincipal(ctx context.Context, path RulePath, principal *models.Principal) (rulemodels.Owner, error) {
	if path.Owner != "" {
		return r.Resolve(ctx, path.Owner)
	}
	if principal == nil {
		return rulemodels.Owner{}, &domain.ValidationError{Message: "rule path without owner requires an authenticated caller"}
	}
	return rulemodels.Owner{
		Kind: rulemodels.OwnerUser,
		ID:   principal.UserID,
		Name: principal.Username,
	}, nil
}
