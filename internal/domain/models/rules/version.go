package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VersionNumber is a major.minor version. Numbers are strictly increasing per
// rule and never reused, even across delete-then-recreate of a like-named rule
// (a recreated rule is a new rule with a fresh sequence).
type VersionNumber struct {
	Major int
	Minor int
}

// InitialVersion is the version assigned to a rule's first publish.
var InitialVersion = VersionNumber{Major: 1, Minor: 0}

// String renders the number as "major.minor", e.g. "1.0".
func (n VersionNumber) String() string {
	return fmt.Sprintf("%d.%d", n.Major, n.Minor)
}

// Next returns the successor version: a major bump increments the major
// component and resets minor to 0, a minor bump increments minor.
func (n VersionNumber) Next(major bool) VersionNumber {
	if major {
		return VersionNumber{Major: n.Major + 1, Minor: 0}
	}
	return VersionNumber{Major: n.Major, Minor: n.Minor + 1}
}

// Less orders version numbers by (major, minor).
func (n VersionNumber) Less(other VersionNumber) bool {
	if n.Major != other.Major {
		return n.Major < other.Major
	}
	return n.Minor < other.Minor
}

// ParseVersionNumber parses "major.minor" into a VersionNumber.
func ParseVersionNumber(s string) (VersionNumber, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return VersionNumber{}, fmt.Errorf("invalid version number %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return VersionNumber{}, fmt.Errorf("invalid major version in %q", s)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return VersionNumber{}, fmt.Errorf("invalid minor version in %q", s)
	}
	return VersionNumber{Major: major, Minor: minor}, nil
}

// RuleVersion is an immutable snapshot of a rule. ContentKey points into the
// blob store; version rows never embed content. Tags and Description are
// denormalized copies of the rule's state at publish time, kept for
// historical display.
type RuleVersion struct {
	ID          string        `json:"id" db:"id"`
	RuleID      string        `json:"rule_id" db:"rule_id"`
	Number      VersionNumber `json:"version_number" db:"-"`
	ContentKey  string        `json:"content_key" db:"content_key"`
	Changelog   string        `json:"changelog" db:"changelog"`
	CreatedBy   string        `json:"created_by" db:"created_by"`
	Description string        `json:"description" db:"description"`
	Tags        []string      `json:"tags" db:"tags"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// VersionSummary is the listVersions row shape: no content key, just what a
// version history display needs.
type VersionSummary struct {
	Number    VersionNumber `json:"version_number"`
	Changelog string        `json:"changelog"`
	CreatedBy string        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary converts a full version row to its listVersions shape.
func (v *RuleVersion) Summary() VersionSummary {
	return VersionSummary{
		Number:    v.Number,
		Changelog: v.Changelog,
		CreatedBy: v.CreatedBy,
		CreatedAt: v.CreatedAt,
	}
}
