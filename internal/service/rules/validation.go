package rules

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mattyatea/zxcv-sub000/internal/config"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesvc "github.com/mattyatea/zxcv-sub000/internal/domain/services/rules"
)

// ruleNamePattern constrains rule names to path-safe identifiers. Slashes and
// "@" are structural in rule paths and can never appear in a name.
var ruleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

func validateCreateRequest(req *rulesvc.CreateRuleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Path, validation.Required),
		validation.Field(&req.Description,
			validation.Length(0, config.MaxDescriptionLength),
		),
		validation.Field(&req.Tags,
			validation.Length(0, config.MaxTagCount),
			validation.Each(validation.Required, validation.Length(1, config.MaxTagLength)),
		),
		validation.Field(&req.Visibility,
			validation.In(
				string(rulemodels.VisibilityPublic),
				string(rulemodels.VisibilityPrivate),
				string(rulemodels.VisibilityOrganization),
			),
		),
		validation.Field(&req.Content,
			validation.Required.Error("content cannot be empty"),
			validation.Length(1, config.MaxContentBytes),
		),
		validation.Field(&req.Changelog,
			validation.Length(0, config.MaxChangelogLength),
		),
	)
}

func validateUpdateRequest(req *rulesvc.UpdateRuleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Description,
			validation.Length(0, config.MaxDescriptionLength),
		),
		validation.Field(&req.Tags,
			validation.Length(0, config.MaxTagCount),
			validation.Each(validation.Required, validation.Length(1, config.MaxTagLength)),
		),
		validation.Field(&req.Visibility,
			validation.In(
				string(rulemodels.VisibilityPublic),
				string(rulemodels.VisibilityPrivate),
				string(rulemodels.VisibilityOrganization),
			),
		),
		validation.Field(&req.Content,
			validation.Length(0, config.MaxContentBytes),
		),
		validation.Field(&req.Changelog,
			validation.Length(0, config.MaxChangelogLength),
		),
	)
}

// validateRuleName checks the name segment of a parsed path.
func validateRuleName(name string) error {
	if len(name) > config.MaxRuleNameLength {
		return fmt.Errorf("rule name cannot exceed %d characters", config.MaxRuleNameLength)
	}
	if !ruleNamePattern.MatchString(name) {
		return fmt.Errorf("invalid rule name %q", name)
	}
	return nil
}

// validateOwnership rejects visibility tiers that make no sense for the
// owner kind: organization visibility needs an organization to scope to, and
// organization-owned rules have no single owning user a private tier could
// refer to.
func validateOwnership(owner rulemodels.Owner, visibility rulemodels.Visibility) error {
	if owner.IsUser() && visibility == rulemodels.VisibilityOrganization {
		return fmt.Errorf("user-owned rules cannot have organization visibility")
	}
	if owner.IsOrganization() && visibility == rulemodels.VisibilityPrivate {
		return fmt.Errorf("organization-owned rules cannot be private")
	}
	return nil
}
