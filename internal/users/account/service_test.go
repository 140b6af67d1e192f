// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package account

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/pkg/pagination"
)

// # Test Doubles

type fakeRepository struct {
	accounts  map[string]*Account
	conflicts int
	attempts  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{accounts: map[string]*Account{}}
}

func (repository *fakeRepository) FindByID(_ context.Context, id string) (*Account, error) {
	found, ok := repository.accounts[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	copied := *found
	return &copied, nil
}

func (repository *fakeRepository) FindBySubjectID(_ context.Context, subjectID string) (*Account, error) {
	for _, found := range repository.accounts {
		if found.SubjectID == subjectID {
			copied := *found
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (repository *fakeRepository) Create(_ context.Context, account *Account) error {
	copied := *account
	repository.accounts[account.ID] = &copied
	return nil
}

func (repository *fakeRepository) UpdateProfile(_ context.Context, account *Account) error {
	copied := *account
	repository.accounts[account.ID] = &copied
	return nil
}

func (repository *fakeRepository) UpdateIfVersion(_ context.Context, account *Account) error {
	repository.attempts++
	if repository.conflicts > 0 {
		repository.conflicts--
		return docstore.ErrVersionConflict
	}

	copied := *account
	copied.Version++
	repository.accounts[account.ID] = &copied
	account.Version++
	return nil
}

func (repository *fakeRepository) List(_ context.Context, filter ListFilter, _ pagination.Params) ([]Account, int64, error) {
	var matched []Account
	for _, found := range repository.accounts {
		if filter.Role != "" && string(found.Role) != filter.Role {
			continue
		}
		if filter.BadgeStatus != "" && string(found.Badge.Status) != filter.BadgeStatus {
			continue
		}
		matched = append(matched, *found)
	}
	return matched, int64(len(matched)), nil
}

type fakeLibrary struct {
	entries map[string]*LibraryEntry
}

func (library *fakeLibrary) UpsertEntry(_ context.Context, entry *LibraryEntry) error {
	if library.entries == nil {
		library.entries = map[string]*LibraryEntry{}
	}
	copied := *entry
	library.entries[entry.AccountID+"/"+entry.ContentID] = &copied
	return nil
}

func (library *fakeLibrary) DeleteEntry(_ context.Context, accountID, contentID string) error {
	delete(library.entries, accountID+"/"+contentID)
	return nil
}

func (library *fakeLibrary) ListEntries(_ context.Context, accountID, status string) ([]LibraryEntry, error) {
	var matched []LibraryEntry
	for _, entry := range library.entries {
		if entry.AccountID != accountID {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		matched = append(matched, *entry)
	}
	return matched, nil
}

func (library *fakeLibrary) UpsertProgress(_ context.Context, _ *ReadingProgress) error {
	return nil
}

func (library *fakeLibrary) FindProgress(_ context.Context, _, _ string) (*ReadingProgress, error) {
	return nil, apperr.NotFound("Progress")
}

// fakeCatalog serves a summary for every requested title except those marked
// hidden, which only staff viewers get back.
type fakeCatalog struct {
	hidden map[string]bool
}

func (catalog *fakeCatalog) Summaries(_ context.Context, contentIDs []string, viewerRole sec.UserRole) (map[string]ContentSummary, error) {
	summaries := map[string]ContentSummary{}
	for _, contentID := range contentIDs {
		if catalog.hidden[contentID] && !viewerRole.IsStaff() {
			continue
		}
		summaries[contentID] = ContentSummary{
			ContentID: contentID,
			Title:     "Title " + contentID,
			Slug:      "title-" + contentID,
		}
	}
	return summaries, nil
}

func testService(repository *fakeRepository) *Service {
	return testServiceWithCatalog(repository, &fakeCatalog{})
}

func testServiceWithCatalog(repository *fakeRepository, catalog *fakeCatalog) *Service {
	return NewService(repository, &fakeLibrary{}, catalog, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func claimsFor(subject, email, name string) *sec.IdentityClaims {
	return &sec.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Email:            email,
		DisplayName:      name,
	}
}

// # Identity Sync

func TestSyncIdentity_ProvisionsFirstTimer(t *testing.T) {
	repository := newFakeRepository()
	service := testService(repository)

	synced, err := service.SyncIdentity(context.Background(), claimsFor("sub-1", "kai@example.com", "Kai"))
	require.NoError(t, err)

	assert.Equal(t, "Kai", synced.Username)
	assert.Equal(t, sec.RoleUser, synced.Role)
	assert.Equal(t, BadgeNone, synced.Badge.Status)
	assert.False(t, synced.Ban.IsBanned)
	assert.Equal(t, int64(1), synced.Version)
	assert.Len(t, repository.accounts, 1)
}

func TestSyncIdentity_UsernameFallsBackToEmailLocalPart(t *testing.T) {
	service := testService(newFakeRepository())

	synced, err := service.SyncIdentity(context.Background(), claimsFor("sub-1", "kai@example.com", ""))
	require.NoError(t, err)
	assert.Equal(t, "kai", synced.Username)
}

func TestSyncIdentity_RepeatSyncMirrorsIdentityFields(t *testing.T) {
	repository := newFakeRepository()
	service := testService(repository)

	first, err := service.SyncIdentity(context.Background(), claimsFor("sub-1", "old@example.com", "Kai"))
	require.NoError(t, err)

	// Grant a role out of band; the next sync must not clobber it.
	repository.accounts[first.ID].Role = sec.RoleModerator

	second, err := service.SyncIdentity(context.Background(), claimsFor("sub-1", "new@example.com", "Kai"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, sec.RoleModerator, second.Role)
	assert.Len(t, repository.accounts, 1)
}

// # Actor Resolution

func TestResolveActor_UnknownSubjectResolvesToNil(t *testing.T) {
	service := testService(newFakeRepository())

	request := httptest.NewRequest("GET", "/", nil)
	actor, err := service.ResolveActor(request, "never-synced")
	require.NoError(t, err)
	assert.Nil(t, actor)
}

func TestResolveActor_ProjectsIDAndRole(t *testing.T) {
	repository := newFakeRepository()
	repository.accounts["a1"] = &Account{ID: "a1", SubjectID: "sub-1", Role: sec.RoleModerator, Version: 1}
	service := testService(repository)

	request := httptest.NewRequest("GET", "/", nil)
	actor, err := service.ResolveActor(request, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, "a1", actor.ID)
	assert.Equal(t, sec.RoleModerator, actor.Role)
}

// # Role Management

func admin() sec.Actor {
	return sec.Actor{ID: "adm1", Role: sec.RoleAdmin}
}

func seedTarget(repository *fakeRepository, role sec.UserRole) {
	repository.accounts["t1"] = &Account{ID: "t1", SubjectID: "sub-t1", Role: role, Version: 1}
}

func TestChangeRole_AdminPromotesUser(t *testing.T) {
	repository := newFakeRepository()
	seedTarget(repository, sec.RoleUser)
	service := testService(repository)

	updated, err := service.ChangeRole(context.Background(), admin(), "t1", sec.RoleModerator)
	require.NoError(t, err)

	assert.Equal(t, sec.RoleModerator, updated.Role)
	assert.Equal(t, int64(2), updated.Version)
}

func TestChangeRole_ModeratorCannotGrantOwnRank(t *testing.T) {
	repository := newFakeRepository()
	seedTarget(repository, sec.RoleUser)
	service := testService(repository)

	staff := sec.Actor{ID: "m1", Role: sec.RoleModerator}
	_, err := service.ChangeRole(context.Background(), staff, "t1", sec.RoleModerator)
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
	assert.Equal(t, sec.RoleUser, repository.accounts["t1"].Role)
}

func TestChangeRole_OwnerGrantReservedToOwner(t *testing.T) {
	repository := newFakeRepository()
	seedTarget(repository, sec.RoleAdmin)
	service := testService(repository)

	_, err := service.ChangeRole(context.Background(), admin(), "t1", sec.RoleOwner)
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))

	owner := sec.Actor{ID: "o1", Role: sec.RoleOwner}
	updated, err := service.ChangeRole(context.Background(), owner, "t1", sec.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleOwner, updated.Role)
}

func TestChangeRole_ConflictAfterExhaustedRetries(t *testing.T) {
	repository := newFakeRepository()
	seedTarget(repository, sec.RoleUser)
	repository.conflicts = docstore.MaxWriteAttempts
	service := testService(repository)

	_, err := service.ChangeRole(context.Background(), admin(), "t1", sec.RoleVerified)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
	assert.Equal(t, sec.RoleUser, repository.accounts["t1"].Role)
}

func TestChangeRole_RetriesOnVersionConflict(t *testing.T) {
	repository := newFakeRepository()
	seedTarget(repository, sec.RoleUser)
	repository.conflicts = 2
	service := testService(repository)

	updated, err := service.ChangeRole(context.Background(), admin(), "t1", sec.RoleVerified)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleVerified, updated.Role)
	assert.Equal(t, 3, repository.attempts)
}

// # Library

func TestSaveLibraryEntry_Upserts(t *testing.T) {
	service := testService(newFakeRepository())

	entry, err := service.SaveLibraryEntry(context.Background(), "a1", "c1", LibraryReading)
	require.NoError(t, err)
	assert.Equal(t, LibraryReading, entry.Status)

	refiled, err := service.SaveLibraryEntry(context.Background(), "a1", "c1", LibraryCompleted)
	require.NoError(t, err)
	assert.Equal(t, LibraryCompleted, refiled.Status)

	items, err := service.ListLibrary(context.Background(), "a1", "", sec.RoleUser)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListLibrary_HydratesContentSummaries(t *testing.T) {
	service := testService(newFakeRepository())

	_, err := service.SaveLibraryEntry(context.Background(), "a1", "c1", LibraryReading)
	require.NoError(t, err)

	items, err := service.ListLibrary(context.Background(), "a1", "", sec.RoleUser)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "c1", items[0].Entry.ContentID)
	assert.Equal(t, "Title c1", items[0].Content.Title)
	assert.Equal(t, "title-c1", items[0].Content.Slug)
}

func TestListLibrary_DropsTitlesHiddenFromViewer(t *testing.T) {
	catalog := &fakeCatalog{hidden: map[string]bool{"c2": true}}
	service := testServiceWithCatalog(newFakeRepository(), catalog)

	_, err := service.SaveLibraryEntry(context.Background(), "a1", "c1", LibraryReading)
	require.NoError(t, err)
	_, err = service.SaveLibraryEntry(context.Background(), "a1", "c2", LibraryReading)
	require.NoError(t, err)

	items, err := service.ListLibrary(context.Background(), "a1", "", sec.RoleUser)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].Entry.ContentID)

	// The same library shows the hidden title to a staff viewer.
	staffItems, err := service.ListLibrary(context.Background(), "a1", "", sec.RoleModerator)
	require.NoError(t, err)
	assert.Len(t, staffItems, 2)
}

func TestGetProgress_ZeroRecordWhenNeverOpened(t *testing.T) {
	service := testService(newFakeRepository())

	progress, err := service.GetProgress(context.Background(), "a1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Page)
	assert.Equal(t, "c1", progress.ContentID)
}
