package memory

import (
	"context"
	"fmt"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// StarRepository is the in-memory StarRepository view over a Store.
type StarRepository struct {
	store *Store
}

// NewStarRepository creates a star repository backed by store.
func NewStarRepository(store *Store) rulesrepo.StarRepository {
	return &StarRepository{store: store}
}

func (r *StarRepository) Create(ctx context.Context, star *rulemodels.RuleStar) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[star.RuleID]; !ok {
		return fmt.Errorf("rule %s: %w", star.RuleID, domain.ErrNotFound)
	}
	key := starKey(star.RuleID, star.UserID)
	if _, ok := s.stars[key]; ok {
		return &domain.ConflictError{
			Message:      "rule already starred",
			ResourceType: "star",
			ResourceID:   star.RuleID,
		}
	}

	s.stars[key] = *star
	return nil
}

func (r *StarRepository) Delete(ctx context.Context, ruleID, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := starKey(ruleID, userID)
	if _, ok := s.stars[key]; !ok {
		return fmt.Errorf("star on rule %s: %w", ruleID, domain.ErrNotFound)
	}
	delete(s.stars, key)
	return nil
}

func (r *StarRepository) Exists(ctx context.Context, ruleID, userID string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.stars[starKey(ruleID, userID)]
	return ok, nil
}
