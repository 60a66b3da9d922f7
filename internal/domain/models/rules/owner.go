package rules

// OwnerKind discriminates the two namespaces a rule can live under.
type OwnerKind string

const (
	OwnerUser         OwnerKind = "user"
	OwnerOrganization OwnerKind = "organization"
)

// Owner is the resolved owning principal of a namespace segment. The resolver
// produces exactly one variant; downstream logic switches on Kind instead of
// probing user and organization tables ad hoc.
type Owner struct {
	Kind OwnerKind
	ID   string
	Name string // username or organization name, as resolved
}

// IsUser reports whether the owner is an individual user.
func (o Owner) IsUser() bool { return o.Kind == OwnerUser }

// IsOrganization reports whether the owner is an organization.
func (o Owner) IsOrganization() bool { return o.Kind == OwnerOrganization }

// IsZero reports whether the owner has not been resolved.
func (o Owner) IsZero() bool { return o.Kind == "" }

// User is the minimal user record the engine needs for namespace resolution.
type User struct {
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
}

// Organization is the minimal organization record the engine needs for
// namespace resolution and membership checks.
type Organization struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// MemberRole is a user's role within an organization. Role semantics beyond
// delete authorization are owned by the membership collaborator.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// CanDeleteTeamRules reports whether the role is allowed to delete
// organization-visibility rules.
func (r MemberRole) CanDeleteTeamRules() bool {
	return r == RoleOwner || r == RoleAdmin
}
