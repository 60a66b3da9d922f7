package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mattyatea/zxcv-sub000/internal/config"
	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	"github.com/mattyatea/zxcv-sub000/internal/domain/repositories"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
	rulesvc "github.com/mattyatea/zxcv-sub000/internal/domain/services/rules"
)

// ruleService implements the RuleService interface
type ruleService struct {
	rules     rulesrepo.RuleRepository
	stars     rulesrepo.StarRepository
	resolver  *Resolver
	access    *AccessControl
	manager   *VersionManager
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewRuleService composes the engine façade.
func NewRuleService(
	rules rulesrepo.RuleRepository,
	stars rulesrepo.StarRepository,
	resolver *Resolver,
	access *AccessControl,
	manager *VersionManager,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) rulesvc.RuleService {
	return &ruleService{
		rules:     rules,
		stars:     stars,
		resolver:  resolver,
		access:    access,
		manager:   manager,
		txManager: txManager,
		logger:    logger,
	}
}

// Create publishes a new rule under the namespace addressed by the request
// path, with version 1.0 created atomically alongside it.
func (s *ruleService) Create(ctx context.Context, principal *models.Principal, req *rulesvc.CreateRuleRequest) (*rulemodels.Rule, *rulemodels.RuleVersion, error) {
	if principal == nil {
		return nil, nil, &domain.UnauthorizedError{Message: "publishing requires an authenticated caller"}
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, nil, &domain.ValidationError{Message: err.Error()}
	}

	path, err := ParseRulePath(req.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := validateRuleName(path.RuleName); err != nil {
		return nil, nil, &domain.ValidationError{Message: err.Error()}
	}

	owner, err := s.resolver.ResolveForPrincipal(ctx, path, principal)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkPublishTarget(ctx, principal, owner); err != nil {
		return nil, nil, err
	}

	visibility := rulemodels.Visibility(req.Visibility)
	if visibility == "" {
		visibility = rulemodels.VisibilityPublic
	}
	if err := validateOwnership(owner, visibility); err != nil {
		return nil, nil, &domain.ValidationError{Message: err.Error()}
	}

	now := time.Now()
	rule := &rulemodels.Rule{
		ID:          uuid.NewString(),
		Name:        path.RuleName,
		Description: req.Description,
		Tags:        req.Tags,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: now,
	}
	switch owner.Kind {
	case rulemodels.OwnerUser:
		rule.UserID = &owner.ID
	case rulemodels.OwnerOrganization:
		rule.OrganizationID = &owner.ID
	}

	version, err := s.manager.Create(ctx, principal, rule, req.Content, req.Changelog)
	if err != nil {
		return nil, nil, err
	}

	return rule, version, nil
}

// Update appends a new version and applies scalar changes to the rule.
func (s *ruleService) Update(ctx context.Context, principal *models.Principal, ruleID string, req *rulesvc.UpdateRuleRequest) (*rulemodels.RuleVersion, error) {
	if principal == nil {
		return nil, &domain.UnauthorizedError{Message: "updating requires an authenticated caller"}
	}
	if err := validateUpdateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.CanWrite(ctx, principal, rule)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("not allowed to update rule %s", rule.Name)}
	}

	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Tags != nil {
		rule.Tags = req.Tags
	}
	if req.Visibility != nil {
		visibility := rulemodels.Visibility(*req.Visibility)
		if err := validateOwnership(rule.Owner(), visibility); err != nil {
			return nil, &domain.ValidationError{Message: err.Error()}
		}
		rule.Visibility = visibility
	}

	return s.manager.Update(ctx, principal, rule, &ruleUpdate{
		Content:   req.Content,
		Changelog: req.Changelog,
		MajorBump: req.MajorBump,
	})
}

// GetByPath resolves an address like "@owner/name" to a rule.
func (s *ruleService) GetByPath(ctx context.Context, principal *models.Principal, path string) (*rulemodels.Rule, error) {
	parsed, err := ParseRulePath(path)
	if err != nil {
		return nil, err
	}

	owner, err := s.resolver.ResolveForPrincipal(ctx, parsed, principal)
	if err != nil {
		return nil, err
	}

	rule, err := s.rules.GetByOwnerAndName(ctx, owner, parsed.RuleName)
	if err != nil {
		return nil, err
	}

	return s.concealUnreadable(ctx, principal, rule)
}

// Get returns a rule by id.
func (s *ruleService) Get(ctx context.Context, principal *models.Principal, ruleID string) (*rulemodels.Rule, error) {
	return s.readableRule(ctx, principal, ruleID)
}

// Content returns the bytes of one version of a rule and counts the fetch as
// a download.
func (s *ruleService) Content(ctx context.Context, principal *models.Principal, ruleID, versionNumber string) ([]byte, error) {
	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return nil, err
	}

	content, err := s.manager.Content(ctx, rule, versionNumber)
	if err != nil {
		return nil, err
	}

	// Counter maintenance must never fail the read.
	if err := s.rules.IncrementDownloads(ctx, rule.ID); err != nil {
		s.logger.Warn("download count increment failed", "rule_id", rule.ID, "error", err)
	}

	return content, nil
}

// Versions lists a rule's version history.
func (s *ruleService) Versions(ctx context.Context, principal *models.Principal, ruleID string) ([]rulemodels.VersionSummary, error) {
	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return nil, err
	}
	return s.manager.Versions(ctx, rule.ID)
}

// Version returns one specific version of a rule.
func (s *ruleService) Version(ctx context.Context, principal *models.Principal, ruleID, versionNumber string) (*rulemodels.RuleVersion, error) {
	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return nil, err
	}
	return s.manager.Version(ctx, rule, versionNumber)
}

// List returns a visibility-filtered page of rules.
func (s *ruleService) List(ctx context.Context, principal *models.Principal, opts *rulemodels.ListOptions) (*rulemodels.ListResults, error) {
	if opts == nil {
		opts = &rulemodels.ListOptions{}
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	items, total, err := s.rules.List(ctx, opts, principal)
	if err != nil {
		return nil, err
	}

	return rulemodels.NewListResults(items, total, opts), nil
}

// Search is List with a required free-text query.
func (s *ruleService) Search(ctx context.Context, principal *models.Principal, opts *rulemodels.ListOptions) (*rulemodels.ListResults, error) {
	if opts == nil || opts.Query == "" {
		return nil, &domain.ValidationError{Message: "search query cannot be empty"}
	}
	return s.List(ctx, principal, opts)
}

// RecordView bumps the rule's view counter. Failures are logged, never
// returned; a broken counter must not break a read.
func (s *ruleService) RecordView(ctx context.Context, principal *models.Principal, ruleID string) {
	if err := s.rules.IncrementDownloads(ctx, ruleID); err != nil {
		s.logger.Warn("view count increment failed", "rule_id", ruleID, "error", err)
	}
}

// Star adds the caller's star edge and bumps the counter in one transaction.
func (s *ruleService) Star(ctx context.Context, principal *models.Principal, ruleID string) error {
	if principal == nil {
		return &domain.UnauthorizedError{Message: "starring requires an authenticated caller"}
	}

	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return err
	}

	star := &rulemodels.RuleStar{
		RuleID:    rule.ID,
		UserID:    principal.UserID,
		CreatedAt: time.Now(),
	}

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.stars.Create(txCtx, star); err != nil {
			return err
		}
		return s.rules.AdjustStars(txCtx, rule.ID, 1)
	})
}

// Unstar removes the caller's star edge and drops the counter in one
// transaction.
func (s *ruleService) Unstar(ctx context.Context, principal *models.Principal, ruleID string) error {
	if principal == nil {
		return &domain.UnauthorizedError{Message: "unstarring requires an authenticated caller"}
	}

	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return err
	}

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.stars.Delete(txCtx, rule.ID, principal.UserID); err != nil {
			return err
		}
		return s.rules.AdjustStars(txCtx, rule.ID, -1)
	})
}

// Related returns rules sharing tags or an owner with the given one.
func (s *ruleService) Related(ctx context.Context, principal *models.Principal, ruleID string, limit int) ([]rulemodels.Rule, error) {
	if limit <= 0 {
		limit = config.DefaultRelatedLimit
	}
	if limit > config.MaxRelatedLimit {
		limit = config.MaxRelatedLimit
	}

	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return nil, err
	}

	return s.rules.Related(ctx, rule, principal, limit)
}

// Delete removes a rule, its versions and their content objects.
func (s *ruleService) Delete(ctx context.Context, principal *models.Principal, ruleID string) error {
	if principal == nil {
		return &domain.UnauthorizedError{Message: "deleting requires an authenticated caller"}
	}

	rule, err := s.readableRule(ctx, principal, ruleID)
	if err != nil {
		return err
	}

	allowed, err := s.access.CanDelete(ctx, principal, rule)
	if err != nil {
		return err
	}
	if !allowed {
		return &domain.ForbiddenError{Message: fmt.Sprintf("not allowed to delete rule %s", rule.Name)}
	}

	return s.manager.Delete(ctx, rule)
}

// checkPublishTarget verifies the caller may publish into the resolved
// namespace: their own user namespace, or an organization they belong to.
func (s *ruleService) checkPublishTarget(ctx context.Context, principal *models.Principal, owner rulemodels.Owner) error {
	switch owner.Kind {
	case rulemodels.OwnerUser:
		if owner.ID != principal.UserID {
			return &domain.ForbiddenError{Message: fmt.Sprintf("cannot publish into user namespace %q", owner.Name)}
		}
		return nil
	case rulemodels.OwnerOrganization:
		member, err := s.access.members.IsMember(ctx, owner.ID, principal.UserID)
		if err != nil {
			return err
		}
		if !member {
			return &domain.ForbiddenError{Message: fmt.Sprintf("cannot publish into organization %q", owner.Name)}
		}
		return nil
	default:
		return &domain.ValidationError{Message: "owner not resolved"}
	}
}

// readableRule loads a rule and applies the read-visibility decision,
// collapsing denials into not-found so callers cannot distinguish "hidden"
// from "absent".
func (s *ruleService) readableRule(ctx context.Context, principal *models.Principal, ruleID string) (*rulemodels.Rule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return s.concealUnreadable(ctx, principal, rule)
}

func (s *ruleService) concealUnreadable(ctx context.Context, principal *models.Principal, rule *rulemodels.Rule) (*rulemodels.Rule, error) {
	readable, err := s.access.CanRead(ctx, principal, rule)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("rule %s: not found", rule.Name)}
	}
	return rule, nil
}
