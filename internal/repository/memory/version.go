package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// VersionRepository is the in-memory VersionRepository view over a Store.
type VersionRepository struct {
	store *Store
}

// NewVersionRepository creates a version repository backed by store.
func NewVersionRepository(store *Store) rulesrepo.VersionRepository {
	return &VersionRepository{store: store}
}

func (r *VersionRepository) Create(ctx context.Context, version *rulemodels.RuleVersion) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[version.RuleID]; !ok {
		return fmt.Errorf("rule %s: %w", version.RuleID, domain.ErrNotFound)
	}
	for _, existing := range s.versions {
		if existing.RuleID == version.RuleID && existing.Number == version.Number {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %s of rule %s already exists", version.Number, version.RuleID),
				ResourceType: "version",
				ResourceID:   existing.ID,
			}
		}
	}

	s.versions[version.ID] = copyVersion(version)
	return nil
}

func (r *VersionRepository) GetByID(ctx context.Context, id string) (*rulemodels.RuleVersion, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	version, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
	}
	return copyVersion(version), nil
}

func (r *VersionRepository) GetByNumber(ctx context.Context, ruleID string, number rulemodels.VersionNumber) (*rulemodels.RuleVersion, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, version := range s.versions {
		if version.RuleID == ruleID && version.Number == number {
			return copyVersion(version), nil
		}
	}
	return nil, fmt.Errorf("version %s of rule %s: %w", number, ruleID, domain.ErrNotFound)
}

func (r *VersionRepository) Latest(ctx context.Context, ruleID string) (*rulemodels.RuleVersion, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *rulemodels.RuleVersion
	for _, version := range s.versions {
		if version.RuleID != ruleID {
			continue
		}
		if latest == nil || latest.Number.Less(version.Number) {
			latest = version
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("rule %s has no versions: %w", ruleID, domain.ErrNotFound)
	}
	return copyVersion(latest), nil
}

func (r *VersionRepository) ListByRule(ctx context.Context, ruleID string) ([]rulemodels.RuleVersion, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var versions []rulemodels.RuleVersion
	for _, version := range s.versions {
		if version.RuleID == ruleID {
			versions = append(versions, *copyVersion(version))
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Number.Less(versions[j].Number)
	})
	return versions, nil
}
