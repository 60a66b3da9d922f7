package rules

import "time"

// RuleStar is an engagement edge: one row per (rule, user) pair. The compound
// uniqueness of (RuleID, UserID) is enforced by the metadata store and is the
// arbiter for concurrent star/unstar races.
type RuleStar struct {
	RuleID    string    `json:"rule_id" db:"rule_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
