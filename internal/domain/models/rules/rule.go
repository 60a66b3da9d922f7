package rules

import (
	"time"
)

// Visibility is the access tier of a rule.
type Visibility string

const (
	// VisibilityPublic rules are readable by anyone, including anonymous callers.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate rules are readable only by the owning user.
	VisibilityPrivate Visibility = "private"
	// VisibilityOrganization rules are readable by members of the owning organization.
	VisibilityOrganization Visibility = "organization"
)

// Valid reports whether v is one of the known visibility tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityOrganization:
		return true
	}
	return false
}

// Rule is a named, owned, versioned text document. Exactly one of UserID or
// OrganizationID is set; the content itself lives in the blob store and is
// reachable only through the rule's versions.
type Rule struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"` // unique within its owning namespace
	UserID          *string    `json:"user_id,omitempty" db:"user_id"`
	OrganizationID  *string    `json:"organization_id,omitempty" db:"organization_id"`
	Description     string     `json:"description" db:"description"`
	Tags            []string   `json:"tags" db:"tags"`
	Visibility      Visibility `json:"visibility" db:"visibility"`
	Downloads       int64      `json:"downloads" db:"downloads"`
	Stars           int64      `json:"stars" db:"stars"`
	LatestVersionID *string    `json:"latest_version_id,omitempty" db:"latest_version_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	PublishedAt     time.Time  `json:"published_at" db:"published_at"`
}

// Owner returns the rule's owner as a tagged variant.
func (r *Rule) Owner() Owner {
	if r.OrganizationID != nil {
		return Owner{Kind: OwnerOrganization, ID: *r.OrganizationID}
	}
	if r.UserID != nil {
		return Owner{Kind: OwnerUser, ID: *r.UserID}
	}
	return Owner{}
}

// OwnedByUser reports whether userID is the rule's owning user.
func (r *Rule) OwnedByUser(userID string) bool {
	return r.UserID != nil && *r.UserID == userID
}

// HasTag reports whether the rule carries the given tag.
func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
