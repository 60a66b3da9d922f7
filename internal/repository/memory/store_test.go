package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
)

func seedRule(t *testing.T, store *Store, id, name, userID string) *rulemodels.Rule {
	t.Helper()
	rule := &rulemodels.Rule{
		ID:         id,
		Name:       name,
		UserID:     &userID,
		Visibility: rulemodels.VisibilityPublic,
	}
	if err := NewRuleRepository(store).Create(context.Background(), rule); err != nil {
		t.Fatalf("seed rule %s: %v", name, err)
	}
	return rule
}

func TestStore_ExecTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	rules := NewRuleRepository(store)
	ctx := context.Background()

	seedRule(t, store, "r-1", "kept", "u-1")

	sentinel := errors.New("boom")
	err := store.ExecTx(ctx, func(txCtx context.Context) error {
		userID := "u-1"
		if err := rules.Create(txCtx, &rulemodels.Rule{
			ID:         "r-2",
			Name:       "discarded",
			UserID:     &userID,
			Visibility: rulemodels.VisibilityPublic,
		}); err != nil {
			return err
		}
		if err := rules.IncrementDownloads(txCtx, "r-1"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("ExecTx error = %v, want sentinel", err)
	}

	// The failed scope's writes are gone.
	if _, err := rules.GetByID(ctx, "r-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("rule created in failed tx survived: %v", err)
	}
	kept, err := rules.GetByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if kept.Downloads != 0 {
		t.Errorf("Downloads = %d, want 0 after rollback", kept.Downloads)
	}
}

func TestStore_ExecTxCommits(t *testing.T) {
	store := NewStore()
	rules := NewRuleRepository(store)
	ctx := context.Background()

	err := store.ExecTx(ctx, func(txCtx context.Context) error {
		userID := "u-1"
		return rules.Create(txCtx, &rulemodels.Rule{
			ID:         "r-1",
			Name:       "committed",
			UserID:     &userID,
			Visibility: rulemodels.VisibilityPublic,
		})
	})
	if err != nil {
		t.Fatalf("ExecTx: %v", err)
	}

	if _, err := rules.GetByID(ctx, "r-1"); err != nil {
		t.Errorf("committed rule missing: %v", err)
	}
}

func TestRuleRepository_DeleteCascades(t *testing.T) {
	store := NewStore()
	rules := NewRuleRepository(store)
	versions := NewVersionRepository(store)
	stars := NewStarRepository(store)
	ctx := context.Background()

	seedRule(t, store, "r-1", "doomed", "u-1")

	version := &rulemodels.RuleVersion{
		ID:         "v-1",
		RuleID:     "r-1",
		Number:     rulemodels.InitialVersion,
		ContentKey: "k-1",
		CreatedBy:  "u-1",
	}
	if err := versions.Create(ctx, version); err != nil {
		t.Fatalf("create version: %v", err)
	}
	if err := stars.Create(ctx, &rulemodels.RuleStar{RuleID: "r-1", UserID: "u-2"}); err != nil {
		t.Fatalf("create star: %v", err)
	}

	if err := rules.Delete(ctx, "r-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := versions.GetByID(ctx, "v-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("version survived rule delete: %v", err)
	}
	starred, err := stars.Exists(ctx, "r-1", "u-2")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if starred {
		t.Error("star survived rule delete")
	}
}

func TestVersionRepository_DuplicateNumberConflicts(t *testing.T) {
	store := NewStore()
	versions := NewVersionRepository(store)
	ctx := context.Background()

	seedRule(t, store, "r-1", "rule", "u-1")

	first := &rulemodels.RuleVersion{ID: "v-1", RuleID: "r-1", Number: rulemodels.InitialVersion, ContentKey: "k-1"}
	if err := versions.Create(ctx, first); err != nil {
		t.Fatalf("create version: %v", err)
	}

	dup := &rulemodels.RuleVersion{ID: "v-2", RuleID: "r-1", Number: rulemodels.InitialVersion, ContentKey: "k-2"}
	if err := versions.Create(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate number error = %v, want conflict", err)
	}
}

func TestVersionRepository_Latest(t *testing.T) {
	store := NewStore()
	versions := NewVersionRepository(store)
	ctx := context.Background()

	seedRule(t, store, "r-1", "rule", "u-1")

	for _, v := range []rulemodels.VersionNumber{
		{Major: 1, Minor: 0},
		{Major: 1, Minor: 1},
		{Major: 2, Minor: 0},
	} {
		if err := versions.Create(ctx, &rulemodels.RuleVersion{
			ID:         "v-" + v.String(),
			RuleID:     "r-1",
			Number:     v,
			ContentKey: "k-" + v.String(),
		}); err != nil {
			t.Fatalf("create version %s: %v", v, err)
		}
	}

	latest, err := versions.Latest(ctx, "r-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Number.String() != "2.0" {
		t.Errorf("Latest = %s, want 2.0", latest.Number)
	}

	if _, err := versions.Latest(ctx, "r-none"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Latest on unknown rule = %v, want not found", err)
	}
}
