package memory

import (
	"context"
	"fmt"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// NamespaceRepository is the in-memory namespace and membership view over a
// Store.
type NamespaceRepository struct {
	store *Store
}

// NewNamespaceRepository creates a namespace repository backed by store.
func NewNamespaceRepository(store *Store) *NamespaceRepository {
	return &NamespaceRepository{store: store}
}

var (
	_ rulesrepo.NamespaceRepository = (*NamespaceRepository)(nil)
	_ rulesrepo.OrganizationMembers = (*NamespaceRepository)(nil)
)

func (r *NamespaceRepository) GetUserByUsername(ctx context.Context, username string) (*rulemodels.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
	}
	user := s.users[id]
	return &user, nil
}

func (r *NamespaceRepository) GetOrganizationByName(ctx context.Context, name string) (*rulemodels.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.orgsByName[name]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", name, domain.ErrNotFound)
	}
	org := s.orgs[id]
	return &org, nil
}

func (r *NamespaceRepository) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.members[memberKey(orgID, userID)]
	return ok, nil
}

func (r *NamespaceRepository) MemberRole(ctx context.Context, orgID, userID string) (rulemodels.MemberRole, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.members[memberKey(orgID, userID)]
	if !ok {
		return "", fmt.Errorf("membership in organization %s: %w", orgID, domain.ErrNotFound)
	}
	return role, nil
}
