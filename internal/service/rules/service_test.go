package rules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattyatea/zxcv-sub000/internal/blob"
	"github.com/mattyatea/zxcv-sub000/internal/domain"
	"github.com/mattyatea/zxcv-sub000/internal/domain/models"
	rulemodels "github.com/mattyatea/zxcv-sub000/internal/domain/models/rules"
	rulesvc "github.com/mattyatea/zxcv-sub000/internal/domain/services/rules"
	"github.com/mattyatea/zxcv-sub000/internal/repository/memory"
)

// testEnv wires the service against the in-memory store and blob store, with
// alice, bob and the acme organization (alice admin, carol member) seeded.
type testEnv struct {
	store *memory.Store
	blobs *blob.MemoryStore
	svc   rulesvc.RuleService

	alice *models.Principal
	bob   *models.Principal
	carol *models.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	store.AddUser(rulemodels.User{ID: "u-alice", Username: "alice"})
	store.AddUser(rulemodels.User{ID: "u-bob", Username: "bob"})
	store.AddUser(rulemodels.User{ID: "u-carol", Username: "carol"})
	store.AddOrganization(rulemodels.Organization{ID: "o-acme", Name: "acme"})
	store.AddMember("o-acme", "u-alice", rulemodels.RoleAdmin)
	store.AddMember("o-acme", "u-carol", rulemodels.RoleMember)

	blobs := blob.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rules := memory.NewRuleRepository(store)
	versions := memory.NewVersionRepository(store)
	stars := memory.NewStarRepository(store)
	namespaces := memory.NewNamespaceRepository(store)

	resolver := NewResolver(namespaces)
	access := NewAccessControl(namespaces)
	manager := NewVersionManager(rules, versions, blobs, store, logger)

	return &testEnv{
		store: store,
		blobs: blobs,
		svc:   NewRuleService(rules, stars, resolver, access, manager, store, logger),
		alice: &models.Principal{UserID: "u-alice", Username: "alice"},
		bob:   &models.Principal{UserID: "u-bob", Username: "bob"},
		carol: &models.Principal{UserID: "u-carol", Username: "carol"},
	}
}

func (e *testEnv) mustCreate(t *testing.T, principal *models.Principal, req *rulesvc.CreateRuleRequest) *rulemodels.Rule {
	t.Helper()
	rule, _, err := e.svc.Create(context.Background(), principal, req)
	require.NoError(t, err)
	return rule
}

func TestRuleService_PublishLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule, version, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{
		Path:        "@alice/lint-rules",
		Description: "Linting conventions",
		Tags:        []string{"go", "lint"},
		Content:     []byte("Always run the linter."),
	})
	require.NoError(t, err)
	require.NotNil(t, rule)
	require.NotNil(t, version)

	assert.Equal(t, "lint-rules", rule.Name)
	assert.Equal(t, rulemodels.VisibilityPublic, rule.Visibility, "visibility defaults to public")
	require.NotNil(t, rule.UserID)
	assert.Equal(t, "u-alice", *rule.UserID)
	assert.Equal(t, "1.0", version.Number.String())
	require.NotNil(t, rule.LatestVersionID)
	assert.Equal(t, version.ID, *rule.LatestVersionID)

	// A second publish appends 1.1 and moves the latest pointer.
	v2, err := env.svc.Update(ctx, env.alice, rule.ID, &rulesvc.UpdateRuleRequest{
		Content:   []byte("Always run the linter. Fix what it finds."),
		Changelog: "expanded guidance",
	})
	require.NoError(t, err)
	assert.Equal(t, "1.1", v2.Number.String())

	history, err := env.svc.Versions(ctx, env.alice, rule.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "1.0", history[0].Number.String())
	assert.Equal(t, "1.1", history[1].Number.String())
	assert.Equal(t, "expanded guidance", history[1].Changelog)

	// Empty version selects the latest; explicit numbers fetch history.
	latest, err := env.svc.Content(ctx, env.alice, rule.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Always run the linter. Fix what it finds.", string(latest))

	first, err := env.svc.Content(ctx, env.alice, rule.ID, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "Always run the linter.", string(first))

	got, err := env.svc.Get(ctx, env.alice, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Downloads, "each content fetch counts as a download")

	byPath, err := env.svc.GetByPath(ctx, nil, "@alice/lint-rules")
	require.NoError(t, err)
	assert.Equal(t, rule.ID, byPath.ID)
}

func TestRuleService_Create_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	content := []byte("body")

	t.Run("anonymous caller", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, nil, &rulesvc.CreateRuleRequest{Path: "foo", Content: content})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("empty content", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{Path: "foo"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("invalid rule name", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{Path: "@alice/.hidden", Content: content})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{Path: "@ghost/foo", Content: content})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("another user's namespace", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{Path: "@bob/foo", Content: content})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("organization without membership", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.bob, &rulesvc.CreateRuleRequest{Path: "@acme/foo", Content: content})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("user-owned rule with organization visibility", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{
			Path:       "@alice/foo",
			Visibility: "organization",
			Content:    content,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("organization-owned rule with private visibility", func(t *testing.T) {
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{
			Path:       "@acme/foo",
			Visibility: "private",
			Content:    content,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("duplicate name in namespace", func(t *testing.T) {
		env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{Path: "@alice/dup", Content: content})
		_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{Path: "@alice/dup", Content: content})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("same name in a different namespace is fine", func(t *testing.T) {
		env.mustCreate(t, env.bob, &rulesvc.CreateRuleRequest{Path: "@bob/dup", Content: content})
	})
}

func TestRuleService_Update_MajorBump(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/style",
		Content: []byte("v1"),
	})

	v2, err := env.svc.Update(ctx, env.alice, rule.ID, &rulesvc.UpdateRuleRequest{
		Content:   []byte("v2"),
		MajorBump: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2.0", v2.Number.String())

	v21, err := env.svc.Update(ctx, env.alice, rule.ID, &rulesvc.UpdateRuleRequest{
		Content: []byte("v2 fixup"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2.1", v21.Number.String())
}

func TestRuleService_Update_UnchangedContentReusesBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/style",
		Content: []byte("stable body"),
	})
	require.Equal(t, 1, env.blobs.Len())

	desc := "retagged"
	_, err := env.svc.Update(ctx, env.alice, rule.ID, &rulesvc.UpdateRuleRequest{
		Description: &desc,
		Tags:        []string{"style"},
		Changelog:   "metadata only",
	})
	require.NoError(t, err)

	// No new blob; both versions point at the same bytes.
	assert.Equal(t, 1, env.blobs.Len())

	v1, err := env.svc.Version(ctx, env.alice, rule.ID, "1.0")
	require.NoError(t, err)
	v11, err := env.svc.Version(ctx, env.alice, rule.ID, "1.1")
	require.NoError(t, err)
	assert.Equal(t, v1.ContentKey, v11.ContentKey)

	got, err := env.svc.Get(ctx, env.alice, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "retagged", got.Description)
	assert.Equal(t, []string{"style"}, got.Tags)
}

func TestRuleService_Update_Authorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userRule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/mine",
		Content: []byte("body"),
	})
	orgRule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@acme/shared",
		Content: []byte("body"),
	})

	_, err := env.svc.Update(ctx, env.bob, userRule.ID, &rulesvc.UpdateRuleRequest{Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrForbidden, "non-owner cannot update a user-owned rule")

	_, err = env.svc.Update(ctx, env.carol, orgRule.ID, &rulesvc.UpdateRuleRequest{Content: []byte("x")})
	assert.NoError(t, err, "any member may update an organization-owned rule")

	_, err = env.svc.Update(ctx, env.bob, orgRule.ID, &rulesvc.UpdateRuleRequest{Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrForbidden, "non-member cannot update an organization-owned rule")
}

func TestRuleService_VisibilityConcealment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	private := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:       "@alice/secret",
		Visibility: "private",
		Content:    []byte("hidden body"),
	})
	env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/open",
		Content: []byte("public body"),
	})

	// Unreadable rules are indistinguishable from absent ones.
	_, err := env.svc.Get(ctx, env.bob, private.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.svc.GetByPath(ctx, nil, "@alice/secret")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.svc.Content(ctx, env.bob, private.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The owner sees it.
	got, err := env.svc.Get(ctx, env.alice, private.ID)
	require.NoError(t, err)
	assert.Equal(t, private.ID, got.ID)

	// Totals follow the same predicate as the rows.
	asBob, err := env.svc.List(ctx, env.bob, &rulemodels.ListOptions{Author: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, asBob.TotalCount)
	require.Len(t, asBob.Rules, 1)
	assert.Equal(t, "open", asBob.Rules[0].Name)

	asAlice, err := env.svc.List(ctx, env.alice, &rulemodels.ListOptions{Author: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, asAlice.TotalCount)
}

func TestRuleService_OrganizationVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:       "@acme/internal-style",
		Visibility: "organization",
		Content:    []byte("team body"),
	})

	_, err := env.svc.Get(ctx, env.carol, team.ID)
	assert.NoError(t, err, "members see organization rules")

	_, err = env.svc.Get(ctx, env.bob, team.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "non-members do not")

	_, err = env.svc.Get(ctx, nil, team.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "anonymous callers do not")
}

func TestRuleService_StarUnstar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/starred",
		Content: []byte("body"),
	})

	require.NoError(t, env.svc.Star(ctx, env.bob, rule.ID))

	got, err := env.svc.Get(ctx, env.bob, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Stars)

	// A second star from the same user conflicts and leaves the count alone.
	err = env.svc.Star(ctx, env.bob, rule.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	got, err = env.svc.Get(ctx, env.bob, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Stars)

	require.NoError(t, env.svc.Unstar(ctx, env.bob, rule.ID))
	got, err = env.svc.Get(ctx, env.bob, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stars)

	err = env.svc.Unstar(ctx, env.bob, rule.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = env.svc.Star(ctx, nil, rule.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRuleService_SearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:        "@alice/lint-rules",
		Description: "Linting conventions",
		Content:     []byte("body"),
	})

	_, err := env.svc.Search(ctx, nil, &rulemodels.ListOptions{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	results, err := env.svc.Search(ctx, nil, &rulemodels.ListOptions{Query: "lint"})
	require.NoError(t, err)
	assert.Equal(t, 1, results.TotalCount)

	results, err = env.svc.Search(ctx, nil, &rulemodels.ListOptions{Query: "nomatch"})
	require.NoError(t, err)
	assert.Equal(t, 0, results.TotalCount)
}

func TestRuleService_Related(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/go-style",
		Tags:    []string{"go", "style"},
		Content: []byte("body"),
	})
	env.mustCreate(t, env.bob, &rulesvc.CreateRuleRequest{
		Path:    "@bob/go-testing",
		Tags:    []string{"go", "testing"},
		Content: []byte("body"),
	})
	env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/docs",
		Tags:    []string{"docs"},
		Content: []byte("body"),
	})
	hidden := env.mustCreate(t, env.bob, &rulesvc.CreateRuleRequest{
		Path:       "@bob/go-private",
		Visibility: "private",
		Tags:       []string{"go"},
		Content:    []byte("body"),
	})

	related, err := env.svc.Related(ctx, env.alice, base.ID, 10)
	require.NoError(t, err)

	names := make([]string, 0, len(related))
	for _, r := range related {
		names = append(names, r.Name)
		assert.NotEqual(t, base.ID, r.ID, "a rule is never related to itself")
		assert.NotEqual(t, hidden.ID, r.ID, "unreadable rules are excluded")
	}
	assert.Contains(t, names, "go-testing", "shared tag")
	assert.Contains(t, names, "docs", "shared owner")
}

func TestRuleService_RecordView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/viewed",
		Content: []byte("body"),
	})

	env.svc.RecordView(ctx, nil, rule.ID)
	env.svc.RecordView(ctx, env.bob, rule.ID)

	got, err := env.svc.Get(ctx, nil, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Downloads)

	// Unknown rules are silently ignored.
	env.svc.RecordView(ctx, nil, "no-such-rule")
}

func TestRuleService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/doomed",
		Content: []byte("v1"),
	})
	_, err := env.svc.Update(ctx, env.alice, rule.ID, &rulesvc.UpdateRuleRequest{Content: []byte("v2")})
	require.NoError(t, err)
	require.Equal(t, 2, env.blobs.Len())

	err = env.svc.Delete(ctx, env.bob, rule.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "only the owner may delete")

	require.NoError(t, env.svc.Delete(ctx, env.alice, rule.ID))

	assert.Equal(t, 0, env.blobs.Len(), "content objects are removed")
	_, err = env.svc.Get(ctx, env.alice, rule.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.svc.GetByPath(ctx, env.alice, "@alice/doomed")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRuleService_Delete_TeamRuleRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:       "@acme/team-style",
		Visibility: "organization",
		Content:    []byte("body"),
	})

	err := env.svc.Delete(ctx, env.carol, team.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "plain members cannot delete team rules")

	assert.NoError(t, env.svc.Delete(ctx, env.alice, team.ID), "admins can")
}

func TestRuleService_Delete_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/stuck",
		Content: []byte("v1"),
	})
	v1, err := env.svc.Version(ctx, env.alice, rule.ID, "1.0")
	require.NoError(t, err)

	env.blobs.FailDelete = map[string]error{v1.ContentKey: errors.New("backend unavailable")}

	err = env.svc.Delete(ctx, env.alice, rule.ID)
	require.ErrorIs(t, err, domain.ErrPartialFailure)

	var partial *domain.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Contains(t, partial.Details, v1.ContentKey)

	// Metadata survives so the delete can be retried.
	got, err := env.svc.Get(ctx, env.alice, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, got.ID)

	env.blobs.FailDelete = nil
	require.NoError(t, env.svc.Delete(ctx, env.alice, rule.ID))
	assert.Equal(t, 0, env.blobs.Len())
}

func TestRuleService_Create_BlobFailureLeavesNoMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.blobs.FailPut = errors.New("backend unavailable")

	_, _, err := env.svc.Create(ctx, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/never",
		Content: []byte("body"),
	})
	require.Error(t, err)

	env.blobs.FailPut = nil
	_, err = env.svc.GetByPath(ctx, env.alice, "@alice/never")
	assert.ErrorIs(t, err, domain.ErrNotFound, "failed publish leaves no rule behind")
}

func TestRuleService_ListPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"a-rules", "b-rules", "c-rules"} {
		env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
			Path:    "@alice/" + name,
			Content: []byte("body"),
		})
	}

	page1, err := env.svc.List(ctx, nil, &rulemodels.ListOptions{Sort: rulemodels.SortName, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page1.TotalCount)
	assert.True(t, page1.HasMore)
	require.Len(t, page1.Rules, 2)
	assert.Equal(t, "a-rules", page1.Rules[0].Name)
	assert.Equal(t, "b-rules", page1.Rules[1].Name)

	page2, err := env.svc.List(ctx, nil, &rulemodels.ListOptions{Sort: rulemodels.SortName, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.False(t, page2.HasMore)
	require.Len(t, page2.Rules, 1)
	assert.Equal(t, "c-rules", page2.Rules[0].Name)

	_, err = env.svc.List(ctx, nil, &rulemodels.ListOptions{Limit: rulemodels.MaxListLimit + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRuleService_UnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := env.mustCreate(t, env.alice, &rulesvc.CreateRuleRequest{
		Path:    "@alice/one",
		Content: []byte("body"),
	})

	_, err := env.svc.Content(ctx, env.alice, rule.ID, "9.9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.Content(ctx, env.alice, rule.ID, "banana")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
