package rules

import (
	"fmt"
)

// SortKey selects the ordering of list/search results.
type SortKey string

const (
	// SortUpdated orders by most recently updated first.
	SortUpdated SortKey = "updated"

	// SortCreated orders by most recently created first.
	SortCreated SortKey = "created"

	// SortName orders alphabetically by rule name.
	SortName SortKey = "name"
)

// Default list configuration values
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions configures how rules are listed and searched. Every filter is
// optional; visibility filtering for the requesting principal is applied on
// top of these regardless of what is set.
type ListOptions struct {
	// Query is a free-text filter matched against rule name and description.
	// Empty string = no text filter (plain listing).
	Query string

	// Tags filters to rules carrying at least one of the given tags (match-any).
	Tags []string

	// Author filters to rules owned by the user with this username.
	Author string

	// Organization filters to rules owned by the organization with this name.
	Organization string

	// Visibility filters to a single visibility tier. Empty = all tiers the
	// principal may see.
	Visibility Visibility

	// Sort selects the ordering (default: SortUpdated).
	Sort SortKey

	// Pagination
	Page  int // 1-based page number (default: 1)
	Limit int // Results per page (default: 20, max: 100)
}

// ApplyDefaults fills in default values for unset fields
func (opts *ListOptions) ApplyDefaults() {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Sort == "" {
		opts.Sort = SortUpdated
	}
}

// Offset converts the 1-based page into a row offset.
func (opts *ListOptions) Offset() int {
	return (opts.Page - 1) * opts.Limit
}

// Validate checks that filter values are reasonable
func (opts *ListOptions) Validate() error {
	if opts.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if opts.Limit > MaxListLimit {
		return fmt.Errorf("limit cannot exceed %d (requested: %d)", MaxListLimit, opts.Limit)
	}
	if opts.Page < 0 {
		return fmt.Errorf("page cannot be negative")
	}
	if opts.Visibility != "" && !opts.Visibility.Valid() {
		return fmt.Errorf("unknown visibility: %q", opts.Visibility)
	}
	switch opts.Sort {
	case "", SortUpdated, SortCreated, SortName:
	default:
		return fmt.Errorf("unknown sort key: %q", opts.Sort)
	}
	return nil
}

// ListResults is a page of rules plus the total match count. TotalCount is
// computed under the same visibility predicate as the rows; it never counts
// rules the requesting principal cannot see.
type ListResults struct {
	Rules      []Rule
	TotalCount int
	HasMore    bool
	Page       int
	Limit      int
}

// NewListResults assembles a results page with the HasMore flag computed from
// the page window and total.
func NewListResults(items []Rule, totalCount int, opts *ListOptions) *ListResults {
	hasMore := (opts.Offset() + len(items)) < totalCount

	return &ListResults{
		Rules:      items,
		TotalCount: totalCount,
		HasMore:    hasMore,
		Page:       opts.Page,
		Limit:      opts.Limit,
	}
}
