package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"

	"github.com/mattyatea/zxcv-sub000/internal/config"
	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	"github.com/mattyatea/zxcv-sub000/internal/domain/repositories"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// VersionManager owns the create/update/delete lifecycle of rule versions:
// it mints content keys, writes blobs before metadata, allocates version
// numbers under the transaction boundary and keeps the latest-version pointer
// on the highest committed number.
type VersionManager struct {
	rules     rulesrepo.RuleRepository
	versions  rulesrepo.VersionRepository
	blobs     rulesrepo.BlobStore
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewVersionManager creates a version manager.
func NewVersionManager(
	rules rulesrepo.RuleRepository,
	versions rulesrepo.VersionRepository,
	blobs rulesrepo.BlobStore,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *VersionManager {
	return &VersionManager{
		rules:     rules,
		versions:  versions,
		blobs:     blobs,
		txManager: txManager,
		logger:    logger,
	}
}

// Create publishes a new rule with its first version. The content blob is
// written before any metadata so a failed put leaves no orphan rows; a failed
// transaction after a successful put leaves an orphan blob, which is garbage
// rather than corruption and is logged for reconciliation.
func (m *VersionManager) Create(ctx context.Context, principal *models.Principal, rule *rulemodels.Rule, content []byte, changelog string) (*rulemodels.RuleVersion, error) {
	// Cheap pre-check; the namespace unique constraint still decides races.
	if _, err := m.rules.GetByOwnerAndName(ctx, rule.Owner(), rule.Name); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("rule %q already exists in this namespace", rule.Name),
			ResourceType: "rule",
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	contentKey := newContentKey()
	if err := m.blobs.Put(ctx, contentKey, content); err != nil {
		return nil, fmt.Errorf("store rule content: %w", err)
	}

	now := time.Now()
	version := &rulemodels.RuleVersion{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		Number:      rulemodels.InitialVersion,
		ContentKey:  contentKey,
		Changelog:   changelog,
		CreatedBy:   principal.UserID,
		Description: rule.Description,
		Tags:        rule.Tags,
		CreatedAt:   now,
	}

	err := m.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := m.rules.Create(txCtx, rule); err != nil {
			return err
		}
		if err := m.versions.Create(txCtx, version); err != nil {
			return err
		}
		return m.rules.SetLatestVersion(txCtx, rule.ID, version.ID)
	})
	if err != nil {
		m.logger.Warn("rule create aborted, content blob orphaned",
			"rule", rule.Name,
			"content_key", contentKey,
			"error", err,
		)
		return nil, err
	}

	rule.LatestVersionID = &version.ID

	m.logger.Info("rule created",
		"id", rule.ID,
		"name", rule.Name,
		"version", version.Number.String(),
	)

	return version, nil
}

// Update appends a new version to the rule. The version number is allocated
// optimistically: each attempt reads the current maximum inside the
// transaction, inserts max+1, and retries on a unique-constraint conflict
// with a fresh read. A major bump racing a minor bump resolves through the
// same loop; whichever commits second bumps from the other's result.
func (m *VersionManager) Update(ctx context.Context, principal *models.Principal, rule *rulemodels.Rule, update *ruleUpdate) (*rulemodels.RuleVersion, error) {
	// New content gets a fresh key, written before any metadata. Unchanged
	// content keeps pointing at the bytes the previous version owns.
	contentKey := ""
	if update.Content != nil {
		contentKey = newContentKey()
		if err := m.blobs.Put(ctx, contentKey, update.Content); err != nil {
			return nil, fmt.Errorf("store rule content: %w", err)
		}
	}

	var version *rulemodels.RuleVersion

	attempt := func() error {
		err := m.txManager.ExecTx(ctx, func(txCtx context.Context) error {
			latest, err := m.versions.Latest(txCtx, rule.ID)
			if err != nil {
				return err
			}

			key := contentKey
			if key == "" {
				key = latest.ContentKey
			}

			now := time.Now()
			version = &rulemodels.RuleVersion{
				ID:          uuid.NewString(),
				RuleID:      rule.ID,
				Number:      latest.Number.Next(update.MajorBump),
				ContentKey:  key,
				Changelog:   update.Changelog,
				CreatedBy:   principal.UserID,
				Description: rule.Description,
				Tags:        rule.Tags,
				CreatedAt:   now,
			}

			if err := m.versions.Create(txCtx, version); err != nil {
				return err
			}
			rule.UpdatedAt = now
			if err := m.rules.Update(txCtx, rule); err != nil {
				return err
			}
			return m.rules.SetLatestVersion(txCtx, rule.ID, version.ID)
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Lost the allocation race; retry with a fresh read.
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	retry := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), config.MaxVersionRetries)
	if err := backoff.Retry(attempt, backoff.WithContext(retry, ctx)); err != nil {
		if contentKey != "" {
			m.logger.Warn("rule update aborted, content blob orphaned",
				"rule_id", rule.ID,
				"content_key", contentKey,
				"error", err,
			)
		}
		return nil, err
	}

	m.logger.Info("rule updated",
		"id", rule.ID,
		"version", version.Number.String(),
	)

	return version, nil
}

// Content resolves a version (latest when number is empty) and fetches its
// bytes from the blob store.
func (m *VersionManager) Content(ctx context.Context, rule *rulemodels.Rule, number string) ([]byte, error) {
	version, err := m.resolveVersion(ctx, rule, number)
	if err != nil {
		return nil, err
	}

	content, err := m.blobs.Get(ctx, version.ContentKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Metadata exists but the blob is gone; reconciliation territory.
			m.logger.Error("version content missing from blob store",
				"rule_id", rule.ID,
				"version", version.Number.String(),
				"content_key", version.ContentKey,
			)
			return nil, &domain.NotFoundError{
				Message: fmt.Sprintf("content for version %s of rule %s not found", version.Number, rule.Name),
			}
		}
		return nil, fmt.Errorf("fetch rule content: %w", err)
	}

	return content, nil
}

// Version resolves one version of a rule (latest when number is empty).
func (m *VersionManager) Version(ctx context.Context, rule *rulemodels.Rule, number string) (*rulemodels.RuleVersion, error) {
	return m.resolveVersion(ctx, rule, number)
}

// Versions lists the rule's version history ordered by number ascending.
func (m *VersionManager) Versions(ctx context.Context, ruleID string) ([]rulemodels.VersionSummary, error) {
	versions, err := m.versions.ListByRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	summaries := make([]rulemodels.VersionSummary, 0, len(versions))
	for i := range versions {
		summaries = append(summaries, versions[i].Summary())
	}
	return summaries, nil
}

// Delete removes the rule's content objects and then its metadata. Every
// content deletion is attempted even when one fails; metadata deletion only
// proceeds once all blobs are gone, otherwise the failures surface as a
// partial-failure error and the metadata stays intact for a retry.
func (m *VersionManager) Delete(ctx context.Context, rule *rulemodels.Rule) error {
	versions, err := m.versions.ListByRule(ctx, rule.ID)
	if err != nil {
		return err
	}

	// Versions with unchanged content share a key; delete each key once.
	seen := make(map[string]bool, len(versions))
	failures := make(map[string]error)
	for i := range versions {
		key := versions[i].ContentKey
		if seen[key] {
			continue
		}
		seen[key] = true

		if err := m.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			failures[key] = err
		}
	}

	if len(failures) > 0 {
		return &domain.PartialFailureError{
			Message: fmt.Sprintf("rule %s: content objects could not be deleted, metadata retained", rule.Name),
			Details: failures,
		}
	}

	if err := m.rules.Delete(ctx, rule.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// Content is gone but the metadata still references it.
		return &domain.PartialFailureError{
			Message: fmt.Sprintf("rule %s: content deleted but metadata removal failed", rule.Name),
			Details: map[string]error{rule.ID: err},
		}
	}

	m.logger.Info("rule deleted",
		"id", rule.ID,
		"name", rule.Name,
		"versions", len(versions),
	)

	return nil
}

func (m *VersionManager) resolveVersion(ctx context.Context, rule *rulemodels.Rule, number string) (*rulemodels.RuleVersion, error) {
	if number == "" {
		if rule.LatestVersionID == nil {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("rule %s has no versions", rule.Name)}
		}
		return m.versions.GetByID(ctx, *rule.LatestVersionID)
	}

	parsed, err := rulemodels.ParseVersionNumber(number)
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	return m.versions.GetByNumber(ctx, rule.ID, parsed)
}

// newContentKey mints an opaque blob key. One key per version, never reused.
func newContentKey() string {
	return uuid.NewString()
}

// ruleUpdate carries the version manager's slice of an update request.
type ruleUpdate struct {
	Content   []byte
	Changelog string
	MajorBump bool
}
