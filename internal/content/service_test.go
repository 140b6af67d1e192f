// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/trust/moderation"
	"github.com/anvubui/mirava/internal/users/account"
	"github.com/anvubui/mirava/pkg/pagination"
)

// # Test Doubles

type fakeRepository struct {
	records      map[string]*Record
	likes        map[string]bool // contentID + "/" + accountID
	lastFilter   Filter
	slugProbeErr error
	conflicts    int
	attempts     int
	deleted      []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: map[string]*Record{}, likes: map[string]bool{}}
}

func (repository *fakeRepository) Create(_ context.Context, record *Record) error {
	copied := *record
	repository.records[record.ID] = &copied
	return nil
}

func (repository *fakeRepository) FindByID(_ context.Context, id string) (*Record, error) {
	found, ok := repository.records[id]
	if !ok {
		return nil, apperr.NotFound("Title")
	}
	copied := *found
	return &copied, nil
}

func (repository *fakeRepository) FindBySlug(_ context.Context, slug string) (*Record, error) {
	if repository.slugProbeErr != nil {
		return nil, repository.slugProbeErr
	}
	for _, record := range repository.records {
		if record.Slug == slug {
			copied := *record
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Title")
}

func (repository *fakeRepository) UpdateMetadataIfVersion(_ context.Context, record *Record) error {
	repository.attempts++
	if repository.conflicts > 0 {
		repository.conflicts--
		return docstore.ErrVersionConflict
	}

	copied := *record
	copied.Version++
	repository.records[record.ID] = &copied
	record.Version++
	return nil
}

func (repository *fakeRepository) DeleteCascade(_ context.Context, id string) error {
	delete(repository.records, id)
	repository.deleted = append(repository.deleted, id)
	return nil
}

func (repository *fakeRepository) List(_ context.Context, filter Filter, _ pagination.Params) ([]Record, int64, error) {
	repository.lastFilter = filter

	var matched []Record
	for _, record := range repository.records {
		if !filter.StaffView && record.Moderation.Status != moderation.StatusActive {
			continue
		}
		if filter.ModStatus != "" && record.Moderation.Status != filter.ModStatus {
			continue
		}
		matched = append(matched, *record)
	}
	return matched, int64(len(matched)), nil
}

func (repository *fakeRepository) ToggleLike(_ context.Context, contentID, accountID string) (bool, int64, error) {
	record := repository.records[contentID]
	key := contentID + "/" + accountID

	if repository.likes[key] {
		delete(repository.likes, key)
		record.LikeCount--
		return false, record.LikeCount, nil
	}

	repository.likes[key] = true
	record.LikeCount++
	return true, record.LikeCount, nil
}

func (repository *fakeRepository) LikeStatus(_ context.Context, contentID, accountID string) (bool, int64, error) {
	record := repository.records[contentID]
	return repository.likes[contentID+"/"+accountID], record.LikeCount, nil
}

func (repository *fakeRepository) FindForModeration(_ context.Context, contentID string) (*moderation.ContentView, error) {
	found, ok := repository.records[contentID]
	if !ok {
		return nil, apperr.NotFound("Title")
	}
	return &moderation.ContentView{
		ID:         found.ID,
		UploaderID: found.UploaderID,
		State:      found.Moderation,
		Version:    found.Version,
	}, nil
}

func (repository *fakeRepository) UpdateModerationIfVersion(_ context.Context, contentID string, version int64, state moderation.State) error {
	found := repository.records[contentID]
	if found.Version != version {
		return docstore.ErrVersionConflict
	}
	found.Moderation = state
	found.Version++
	return nil
}

type fakeDirectory struct {
	accounts map[string]*account.Account
}

func (directory *fakeDirectory) FindByID(_ context.Context, id string) (*account.Account, error) {
	found, ok := directory.accounts[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return found, nil
}

type fakeGuard struct {
	denial error
}

func (guard *fakeGuard) AssertCanUpload(context.Context, string) error {
	return guard.denial
}

type fakeViews struct {
	counts map[string]int64
}

func (views *fakeViews) Increment(_ context.Context, contentID string) (int64, error) {
	if views.counts == nil {
		views.counts = map[string]int64{}
	}
	views.counts[contentID]++
	return views.counts[contentID], nil
}

func (views *fakeViews) Get(_ context.Context, contentID string) (int64, error) {
	return views.counts[contentID], nil
}

type fakeBlobs struct {
	deleted []string
}

func (blobs *fakeBlobs) Delete(_ context.Context, reference string) error {
	blobs.deleted = append(blobs.deleted, reference)
	return nil
}

// # Fixture

type fixture struct {
	repository *fakeRepository
	directory  *fakeDirectory
	guard      *fakeGuard
	blobs      *fakeBlobs
	service    *Service
}

func newFixture() *fixture {
	repository := newFakeRepository()
	directory := &fakeDirectory{accounts: map[string]*account.Account{
		"uploader1": {ID: "uploader1", Role: sec.RoleUser},
		"admin1":    {ID: "admin1", Role: sec.RoleAdmin},
	}}
	guard := &fakeGuard{}
	blobs := &fakeBlobs{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(repository, directory, guard, &fakeViews{}, blobs, logger)

	return &fixture{repository: repository, directory: directory, guard: guard, blobs: blobs, service: service}
}

func (f *fixture) seed(id string, status moderation.Status) *Record {
	record := &Record{
		ID:           id,
		Title:        "Seeded Title " + id,
		Slug:         "seeded-title-" + id,
		PDFURL:       "pdfs/" + id + ".pdf",
		ThumbnailURL: "thumbs/" + id + ".jpg",
		UploaderID:   "uploader1",
		Moderation:   moderation.State{Status: status},
		Version:      1,
	}
	if status != moderation.StatusActive {
		record.Moderation.Reason = "policy"
	}
	f.repository.records[id] = record
	return record
}

func uploader() sec.Actor {
	return sec.Actor{ID: "uploader1", Role: sec.RoleUser}
}

// # Upload

func TestCreate_PublishesActiveRecord(t *testing.T) {
	f := newFixture()

	record, err := f.service.Create(context.Background(), uploader(), CreateInput{
		Title:  "Blade of the Moors",
		PDFURL: "pdfs/blade.pdf",
		Genres: []string{"action", "fantasy"},
	})
	require.NoError(t, err)

	assert.Equal(t, moderation.StatusActive, record.Moderation.Status)
	assert.Empty(t, record.Moderation.Reason)
	assert.Equal(t, "blade-of-the-moors", record.Slug)
	assert.Equal(t, "uploader1", record.UploaderID)
	assert.Equal(t, int64(1), record.Version)
}

func TestCreate_BannedUploaderRefused(t *testing.T) {
	f := newFixture()
	f.guard.denial = apperr.Banned("spam", nil)

	_, err := f.service.Create(context.Background(), uploader(), CreateInput{
		Title:  "Blade of the Moors",
		PDFURL: "pdfs/blade.pdf",
	})
	assert.True(t, apperr.HasCode(err, "BANNED"))
	assert.Empty(t, f.repository.records)
}

func TestCreate_MissingTitleRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), uploader(), CreateInput{PDFURL: "pdfs/x.pdf"})
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))
}

func TestCreate_SlugCollisionSuffixed(t *testing.T) {
	f := newFixture()

	first, err := f.service.Create(context.Background(), uploader(), CreateInput{
		Title:  "Blade of the Moors",
		PDFURL: "pdfs/a.pdf",
	})
	require.NoError(t, err)

	second, err := f.service.Create(context.Background(), uploader(), CreateInput{
		Title:  "Blade of the Moors",
		PDFURL: "pdfs/b.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "blade-of-the-moors", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "blade-of-the-moors-")
}

func TestCreate_SlugProbeFailureAborts(t *testing.T) {
	f := newFixture()
	f.repository.slugProbeErr = errors.New("connection reset")

	_, err := f.service.Create(context.Background(), uploader(), CreateInput{
		Title:  "Blade of the Moors",
		PDFURL: "pdfs/blade.pdf",
	})
	require.Error(t, err)
	assert.False(t, apperr.HasCode(err, "NOT_FOUND"))
	assert.Empty(t, f.repository.records)
}

// # Visibility

func TestGet_HiddenIsNotFoundForReaders(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusHidden)

	_, err := f.service.Get(context.Background(), "seeded-title-c1", sec.RoleUser)
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}

func TestGet_HiddenVisibleToStaff(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusHidden)

	record, err := f.service.Get(context.Background(), "seeded-title-c1", sec.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, "c1", record.ID)
}

func TestGet_CountsView(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	first, err := f.service.Get(context.Background(), "seeded-title-c1", "")
	require.NoError(t, err)
	second, err := f.service.Get(context.Background(), "seeded-title-c1", "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ViewCount)
	assert.Equal(t, int64(2), second.ViewCount)
}

func TestList_StaffViewFollowsRole(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)
	f.seed("c2", moderation.StatusHidden)

	visible, total, err := f.service.List(context.Background(), Filter{}, pagination.Params{Page: 1, Limit: 20}, sec.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, visible, 1)

	all, total, err := f.service.List(context.Background(), Filter{}, pagination.Params{Page: 1, Limit: 20}, sec.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

func TestList_StatusFilterHonoredForStaff(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)
	f.seed("c2", moderation.StatusHidden)
	f.seed("c3", moderation.StatusBanned)

	hidden, total, err := f.service.List(context.Background(),
		Filter{ModStatus: moderation.StatusHidden}, pagination.Params{Page: 1, Limit: 20}, sec.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hidden, 1)
	assert.Equal(t, "c2", hidden[0].ID)
}

func TestList_StatusFilterClearedForReaders(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)
	f.seed("c2", moderation.StatusHidden)

	visible, total, err := f.service.List(context.Background(),
		Filter{ModStatus: moderation.StatusHidden}, pagination.Params{Page: 1, Limit: 20}, sec.RoleUser)
	require.NoError(t, err)

	// The reader's status filter must not leak hidden content.
	assert.Equal(t, moderation.Status(""), f.repository.lastFilter.ModStatus)
	assert.Equal(t, int64(1), total)
	require.Len(t, visible, 1)
	assert.Equal(t, "c1", visible[0].ID)
}

// # Metadata Edits

func TestUpdate_UploaderEditsOwnRecord(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	title := "Renamed"
	record, err := f.service.Update(context.Background(), uploader(), "c1", UpdateInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", record.Title)
	assert.Equal(t, int64(2), record.Version)
}

func TestUpdate_StrangerDenied(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	title := "Renamed"
	stranger := sec.Actor{ID: "u2", Role: sec.RoleVerified}
	_, err := f.service.Update(context.Background(), stranger, "c1", UpdateInput{Title: &title})
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
}

func TestUpdate_UploaderLockedOutOfBannedRecord(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusBanned)

	title := "Scrubbed"
	_, err := f.service.Update(context.Background(), uploader(), "c1", UpdateInput{Title: &title})
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
}

func TestUpdate_ModeratorEditsUserRecord(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	title := "Cleaned Up"
	staff := sec.Actor{ID: "m1", Role: sec.RoleModerator}
	record, err := f.service.Update(context.Background(), staff, "c1", UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Cleaned Up", record.Title)
}

func TestUpdate_RetriesOnVersionConflict(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)
	f.repository.conflicts = 2

	title := "Renamed"
	_, err := f.service.Update(context.Background(), uploader(), "c1", UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 3, f.repository.attempts)
}

func TestUpdate_ConflictAfterExhaustedRetries(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)
	f.repository.conflicts = docstore.MaxWriteAttempts

	title := "Renamed"
	_, err := f.service.Update(context.Background(), uploader(), "c1", UpdateInput{Title: &title})
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

// # Deletion

func TestDelete_UploaderRemovesOwnRecordAndBlobs(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	err := f.service.Delete(context.Background(), uploader(), "c1")
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, f.repository.deleted)
	assert.ElementsMatch(t, []string{"thumbs/c1.jpg", "pdfs/c1.pdf"}, f.blobs.deleted)
}

func TestDelete_UploaderCannotDestroyBannedEvidence(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusBanned)

	err := f.service.Delete(context.Background(), uploader(), "c1")
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
	assert.Empty(t, f.repository.deleted)
}

func TestDelete_AdminRemovesBannedRecord(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusBanned)

	admin := sec.Actor{ID: "admin1", Role: sec.RoleAdmin}
	err := f.service.Delete(context.Background(), admin, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, f.repository.deleted)
}

// # Engagement

func TestToggleLike_FollowsVisibility(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusHidden)

	reader := sec.Actor{ID: "u2", Role: sec.RoleUser}
	_, _, err := f.service.ToggleLike(context.Background(), reader, "c1")
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}

func TestToggleLike_ActiveRecord(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	reader := sec.Actor{ID: "u2", Role: sec.RoleUser}
	liked, count, err := f.service.ToggleLike(context.Background(), reader, "c1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)
}

func TestLikeStatus_ReadsWithoutToggling(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusActive)

	reader := sec.Actor{ID: "u2", Role: sec.RoleUser}
	_, _, err := f.service.ToggleLike(context.Background(), reader, "c1")
	require.NoError(t, err)

	liked, count, err := f.service.LikeStatus(context.Background(), reader, "c1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	// A second read must not flip anything.
	liked, count, err = f.service.LikeStatus(context.Background(), reader, "c1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	other := sec.Actor{ID: "u3", Role: sec.RoleUser}
	liked, count, err = f.service.LikeStatus(context.Background(), other, "c1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(1), count)
}

func TestLikeStatus_FollowsVisibility(t *testing.T) {
	f := newFixture()
	f.seed("c1", moderation.StatusHidden)

	reader := sec.Actor{ID: "u2", Role: sec.RoleUser}
	_, _, err := f.service.LikeStatus(context.Background(), reader, "c1")
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}
