// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package report

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/pkg/pagination"
)

type fakeStore struct {
	reports   map[string]*Report
	conflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: map[string]*Report{}}
}

func (store *fakeStore) Create(_ context.Context, report *Report) error {
	copied := *report
	store.reports[report.ID] = &copied
	return nil
}

func (store *fakeStore) FindByID(_ context.Context, id string) (*Report, error) {
	found, ok := store.reports[id]
	if !ok {
		return nil, apperr.NotFound("Report")
	}
	copied := *found
	return &copied, nil
}

func (store *fakeStore) UpdateIfVersion(_ context.Context, report *Report) error {
	if store.conflicts > 0 {
		store.conflicts--
		return docstore.ErrVersionConflict
	}

	copied := *report
	copied.Version++
	store.reports[report.ID] = &copied
	report.Version++
	return nil
}

func (store *fakeStore) List(_ context.Context, filter ListFilter, _ pagination.Params) ([]Report, int64, error) {
	var matched []Report
	for _, report := range store.reports {
		if filter.Status != "" && string(report.Status) != filter.Status {
			continue
		}
		if filter.Type != "" && string(report.Type) != filter.Type {
			continue
		}
		matched = append(matched, *report)
	}
	return matched, int64(len(matched)), nil
}

func (store *fakeStore) CountOpen(_ context.Context) (int64, error) {
	var count int64
	for _, report := range store.reports {
		if report.Status == StatusOpen {
			count++
		}
	}
	return count, nil
}

type fakeCountCache struct {
	count         int64
	found         bool
	invalidations int
}

func (cache *fakeCountCache) GetOpenCount(_ context.Context) (int64, bool, error) {
	return cache.count, cache.found, nil
}

func (cache *fakeCountCache) SetOpenCount(_ context.Context, count int64) error {
	cache.count = count
	cache.found = true
	return nil
}

func (cache *fakeCountCache) InvalidateOpenCount(_ context.Context) error {
	cache.found = false
	cache.invalidations++
	return nil
}

func testService(store *fakeStore, cache *fakeCountCache) *Service {
	return NewService(store, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func moderator() sec.Actor {
	return sec.Actor{ID: "m1", Role: sec.RoleModerator}
}

func TestFile_CreatesOpenReport(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCountCache{found: true, count: 3}
	service := testService(store, cache)

	filed, err := service.File(context.Background(), "u1", TypeContent, "c1", "  stolen artwork  ")
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, filed.Status)
	assert.Equal(t, "stolen artwork", filed.Reason)
	assert.NotEmpty(t, filed.ID)
	assert.Equal(t, int64(1), filed.Version)

	// Filing invalidates the dashboard counter.
	assert.Equal(t, 1, cache.invalidations)
}

func TestFile_EmptyReasonRejected(t *testing.T) {
	service := testService(newFakeStore(), &fakeCountCache{})

	_, err := service.File(context.Background(), "u1", TypeAccount, "u2", "   ")
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))
}

func TestFile_DuplicatesAllowed(t *testing.T) {
	store := newFakeStore()
	service := testService(store, &fakeCountCache{})

	first, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)
	second, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, store.reports, 2)
}

func TestResolve_StampsResolutionTrail(t *testing.T) {
	store := newFakeStore()
	service := testService(store, &fakeCountCache{})

	filed, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)

	resolved, err := service.Resolve(context.Background(), moderator(), filed.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "m1", *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
}

func TestResolve_TerminalState(t *testing.T) {
	store := newFakeStore()
	service := testService(store, &fakeCountCache{})

	filed, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)

	_, err = service.Resolve(context.Background(), moderator(), filed.ID)
	require.NoError(t, err)

	_, err = service.Resolve(context.Background(), moderator(), filed.ID)
	assert.True(t, apperr.HasCode(err, "ALREADY_RESOLVED"))
}

func TestResolve_RequiresStaff(t *testing.T) {
	store := newFakeStore()
	service := testService(store, &fakeCountCache{})

	filed, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)

	reader := sec.Actor{ID: "u2", Role: sec.RoleVerified}
	_, err = service.Resolve(context.Background(), reader, filed.ID)
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
}

func TestResolve_ConflictAfterExhaustedRetries(t *testing.T) {
	store := newFakeStore()
	service := testService(store, &fakeCountCache{})

	filed, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)

	store.conflicts = docstore.MaxWriteAttempts
	_, err = service.Resolve(context.Background(), moderator(), filed.ID)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestOpenCount_ServedFromCacheWhenFresh(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCountCache{found: true, count: 42}
	service := testService(store, cache)

	count, err := service.OpenCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestOpenCount_FallsThroughOnMiss(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCountCache{}
	service := testService(store, cache)

	_, err := service.File(context.Background(), "u1", TypeContent, "c1", "spam")
	require.NoError(t, err)

	count, err := service.OpenCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The fresh value is written back for the next dashboard refresh.
	assert.True(t, cache.found)
	assert.Equal(t, int64(1), cache.count)
}
