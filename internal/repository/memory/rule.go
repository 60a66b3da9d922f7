package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// RuleRepository is the in-memory RuleRepository view over a Store.
type RuleRepository struct {
	store *Store
}

// NewRuleRepository creates a rule repository backed by store.
func NewRuleRepository(store *Store) rulesrepo.RuleRepository {
	return &RuleRepository{store: store}
}

func (r *RuleRepository) Create(ctx context.Context, rule *rulemodels.Rule) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rules {
		if existing.Name == rule.Name && sameOwner(existing, rule) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("rule %q already exists in this namespace", rule.Name),
				ResourceType: "rule",
				ResourceID:   existing.ID,
			}
		}
	}

	s.rules[rule.ID] = copyRule(rule)
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*rulemodels.Rule, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	return copyRule(rule), nil
}

func (r *RuleRepository) GetByOwnerAndName(ctx context.Context, owner rulemodels.Owner, name string) (*rulemodels.Rule, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rule := range s.rules {
		if rule.Name == name && rule.Owner().Kind == owner.Kind && rule.Owner().ID == owner.ID {
			return copyRule(rule), nil
		}
	}
	return nil, fmt.Errorf("rule %s: %w", name, domain.ErrNotFound)
}

func (r *RuleRepository) Update(ctx context.Context, rule *rulemodels.Rule) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[rule.ID]
	if !ok {
		return fmt.Errorf("rule %s: %w", rule.ID, domain.ErrNotFound)
	}

	existing.Description = rule.Description
	existing.Tags = append([]string(nil), rule.Tags...)
	existing.Visibility = rule.Visibility
	existing.UpdatedAt = rule.UpdatedAt
	return nil
}

func (r *RuleRepository) SetLatestVersion(ctx context.Context, ruleID, versionID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[ruleID]
	if !ok {
		return fmt.Errorf("rule %s: %w", ruleID, domain.ErrNotFound)
	}
	rule.LatestVersionID = &versionID
	rule.UpdatedAt = time.Now()
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	delete(s.rules, id)

	// Cascade versions and stars like the relational schema does.
	for versionID, version := range s.versions {
		if version.RuleID == id {
			delete(s.versions, versionID)
		}
	}
	for key, star := range s.stars {
		if star.RuleID == id {
			delete(s.stars, key)
		}
	}
	return nil
}

func (r *RuleRepository) IncrementDownloads(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	rule.Downloads++
	return nil
}

func (r *RuleRepository) AdjustStars(ctx context.Context, id string, delta int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	rule.Stars += int64(delta)
	if rule.Stars < 0 {
		rule.Stars = 0
	}
	return nil
}

func (r *RuleRepository) List(ctx context.Context, opts *rulemodels.ListOptions, viewer *models.Principal) ([]rulemodels.Rule, int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []rulemodels.Rule
	for _, rule := range s.rules {
		if !s.visibleTo(rule, viewer) {
			continue
		}
		if !matchesQuery(rule, opts.Query) {
			continue
		}
		if len(opts.Tags) > 0 && !sharesTag(rule, opts.Tags) {
			continue
		}
		if opts.Author != "" && !r.ownedByUsername(rule, opts.Author) {
			continue
		}
		if opts.Organization != "" && !r.ownedByOrgName(rule, opts.Organization) {
			continue
		}
		if opts.Visibility != "" && rule.Visibility != opts.Visibility {
			continue
		}
		matches = append(matches, *copyRule(rule))
	}

	sortRules(matches, opts.Sort)

	total := len(matches)
	offset := opts.Offset()
	if offset >= total {
		return nil, total, nil
	}
	end := offset + opts.Limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

func (r *RuleRepository) Related(ctx context.Context, rule *rulemodels.Rule, viewer *models.Principal, limit int) ([]rulemodels.Rule, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var tagged, owned []rulemodels.Rule
	for _, candidate := range s.rules {
		if candidate.ID == rule.ID || !s.visibleTo(candidate, viewer) {
			continue
		}
		switch {
		case sharesTag(candidate, rule.Tags):
			tagged = append(tagged, *copyRule(candidate))
		case sameOwner(candidate, rule):
			owned = append(owned, *copyRule(candidate))
		}
	}

	sortRules(tagged, rulemodels.SortUpdated)
	sortRules(owned, rulemodels.SortUpdated)

	related := append(tagged, owned...)
	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func (r *RuleRepository) ownedByUsername(rule *rulemodels.Rule, username string) bool {
	if rule.UserID == nil {
		return false
	}
	id, ok := r.store.usersByName[username]
	return ok && id == *rule.UserID
}

func (r *RuleRepository) ownedByOrgName(rule *rulemodels.Rule, name string) bool {
	if rule.OrganizationID == nil {
		return false
	}
	id, ok := r.store.orgsByName[name]
	return ok && id == *rule.OrganizationID
}

func sameOwner(a, b *rulemodels.Rule) bool {
	ao, bo := a.Owner(), b.Owner()
	return ao.Kind == bo.Kind && ao.ID == bo.ID
}
