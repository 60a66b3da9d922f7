package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema constraint names the repositories dispatch on. They must match the
// migrations; a unique violation is only meaningful to callers when they know
// which key was violated.
const (
	// ConstraintVersionNumber guards (rule_id, major, minor). A violation is a
	// version-allocation race the version manager retries on; content keys are
	// shared between versions and must never trip this path.
	ConstraintVersionNumber = "rule_versions_number_key"

	// ConstraintUserRuleName and ConstraintOrgRuleName guard rule-name
	// uniqueness within each namespace kind.
	ConstraintUserRuleName = "rules_user_name_key"
	ConstraintOrgRuleName  = "rules_org_name_key"

	// ConstraintStarEdge is the rule_stars primary key, one star per
	// (rule, user).
	ConstraintStarEdge = "rule_stars_pkey"
)

// IsUniqueViolation reports whether err is a unique-constraint violation of
// the named constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsNoRows reports whether err is pgx's empty-result error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsForeignKeyViolation reports whether err is a foreign-key violation, which
// the repositories surface as the referenced row not existing.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
