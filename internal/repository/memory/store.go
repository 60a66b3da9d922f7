// Package memory provides in-process implementations of the metadata
// repository interfaces for testing and embedding. Transactions are emulated
// by serializing ExecTx scopes and restoring a snapshot on error, which gives
// the same commit-or-nothing behavior the engine relies on, minus durability.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	"github.com/mattyatea/zxcv-sub000/internal/domain/repositories"
)

// Store holds every record type behind one lock. It implements
// repositories.TransactionManager; the typed repository views share its state.
type Store struct {
	mu sync.Mutex
	// txMu serializes transactions so a snapshot/restore pair never interleaves
	// with another transaction's writes.
	txMu sync.Mutex

	rules    map[string]*rulemodels.Rule
	versions map[string]*rulemodels.RuleVersion
	stars    map[string]rulemodels.RuleStar

	users       map[string]rulemodels.User
	usersByName map[string]string
	orgs        map[string]rulemodels.Organization
	orgsByName  map[string]string
	members     map[string]rulemodels.MemberRole
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		rules:       make(map[string]*rulemodels.Rule),
		versions:    make(map[string]*rulemodels.RuleVersion),
		stars:       make(map[string]rulemodels.RuleStar),
		users:       make(map[string]rulemodels.User),
		usersByName: make(map[string]string),
		orgs:        make(map[string]rulemodels.Organization),
		orgsByName:  make(map[string]string),
		members:     make(map[string]rulemodels.MemberRole),
	}
}

// AddUser registers a user for namespace resolution.
func (s *Store) AddUser(user rulemodels.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	s.usersByName[user.Username] = user.ID
}

// AddOrganization registers an organization for namespace resolution.
func (s *Store) AddOrganization(org rulemodels.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = org
	s.orgsByName[org.Name] = org.ID
}

// AddMember registers a user as an organization member with the given role.
func (s *Store) AddMember(orgID, userID string, role rulemodels.MemberRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey(orgID, userID)] = role
}

// ExecTx implements repositories.TransactionManager. The function's writes
// are discarded when it returns an error.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	rules    map[string]*rulemodels.Rule
	versions map[string]*rulemodels.RuleVersion
	stars    map[string]rulemodels.RuleStar
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := storeSnapshot{
		rules:    make(map[string]*rulemodels.Rule, len(s.rules)),
		versions: make(map[string]*rulemodels.RuleVersion, len(s.versions)),
		stars:    make(map[string]rulemodels.RuleStar, len(s.stars)),
	}
	for id, rule := range s.rules {
		snap.rules[id] = copyRule(rule)
	}
	for id, version := range s.versions {
		snap.versions[id] = copyVersion(version)
	}
	for key, star := range s.stars {
		snap.stars[key] = star
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = snap.rules
	s.versions = snap.versions
	s.stars = snap.stars
}

var _ repositories.TransactionManager = (*Store)(nil)

func memberKey(orgID, userID string) string { return orgID + "/" + userID }
func starKey(ruleID, userID string) string  { return ruleID + "/" + userID }

func copyRule(rule *rulemodels.Rule) *rulemodels.Rule {
	clone := *rule
	clone.Tags = append([]string(nil), rule.Tags...)
	if rule.UserID != nil {
		v := *rule.UserID
		clone.UserID = &v
	}
	if rule.OrganizationID != nil {
		v := *rule.OrganizationID
		clone.OrganizationID = &v
	}
	if rule.LatestVersionID != nil {
		v := *rule.LatestVersionID
		clone.LatestVersionID = &v
	}
	return &clone
}

func copyVersion(version *rulemodels.RuleVersion) *rulemodels.RuleVersion {
	clone := *version
	clone.Tags = append([]string(nil), version.Tags...)
	return &clone
}

// visibleTo is the single read-visibility predicate shared by listing,
// counting and related-rule queries.
func (s *Store) visibleTo(rule *rulemodels.Rule, viewer *models.Principal) bool {
	switch rule.Visibility {
	case rulemodels.VisibilityPublic:
		return true
	case rulemodels.VisibilityPrivate:
		return viewer != nil && rule.OwnedByUser(viewer.UserID)
	case rulemodels.VisibilityOrganization:
		if viewer == nil || rule.OrganizationID == nil {
			return false
		}
		_, ok := s.members[memberKey(*rule.OrganizationID, viewer.UserID)]
		return ok
	}
	return false
}

func sortRules(items []rulemodels.Rule, key rulemodels.SortKey) {
	sort.SliceStable(items, func(i, j int) bool {
		switch key {
		case rulemodels.SortCreated:
			return items[i].CreatedAt.After(items[j].CreatedAt)
		case rulemodels.SortName:
			return items[i].Name < items[j].Name
		default:
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
	})
}

func matchesQuery(rule *rulemodels.Rule, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(rule.Name), q) ||
		strings.Contains(strings.ToLower(rule.Description), q)
}

func sharesTag(rule *rulemodels.Rule, tags []string) bool {
	for _, t := range tags {
		if rule.HasTag(t) {
			return true
		}
	}
	return false
}
