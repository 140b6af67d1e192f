// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package badge

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/users/account"
)

type fakeAccountStore struct {
	accounts  map[string]*account.Account
	conflicts int
}

func newFakeAccountStore(accounts ...*account.Account) *fakeAccountStore {
	store := &fakeAccountStore{accounts: map[string]*account.Account{}}
	for _, acc := range accounts {
		store.accounts[acc.ID] = acc
	}
	return store
}

func (store *fakeAccountStore) FindByID(_ context.Context, id string) (*account.Account, error) {
	found, ok := store.accounts[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	copied := *found
	return &copied, nil
}

func (store *fakeAccountStore) UpdateIfVersion(_ context.Context, updated *account.Account) error {
	if store.conflicts > 0 {
		store.conflicts--
		return docstore.ErrVersionConflict
	}

	copied := *updated
	copied.Version++
	store.accounts[updated.ID] = &copied
	updated.Version++
	return nil
}

func testService(store *fakeAccountStore) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func applicant(id string, status account.BadgeStatus) *account.Account {
	return &account.Account{
		ID:      id,
		Role:    sec.RoleUser,
		Badge:   account.CreatorBadgeState{Status: status},
		Version: 1,
	}
}

func admin() sec.Actor {
	return sec.Actor{ID: "adm1", Role: sec.RoleAdmin}
}

func TestApply_FromNone(t *testing.T) {
	store := newFakeAccountStore(applicant("u1", account.BadgeNone))
	service := testService(store)

	state, err := service.Apply(context.Background(), "u1", "  I draw webcomics  ")
	require.NoError(t, err)

	assert.Equal(t, account.BadgePending, state.Status)
	assert.Equal(t, "I draw webcomics", state.Message)
	require.NotNil(t, state.AppliedAt)
	assert.Nil(t, state.ReviewedAt)
	assert.Nil(t, state.ReviewedBy)
}

func TestApply_WhilePendingRefused(t *testing.T) {
	store := newFakeAccountStore(applicant("u1", account.BadgePending))
	service := testService(store)

	_, err := service.Apply(context.Background(), "u1", "again")
	assert.True(t, apperr.HasCode(err, "ALREADY_PENDING"))
}

func TestApply_ReapplyAfterRejectionClearsReviewTrail(t *testing.T) {
	reviewedAt := time.Now().Add(-time.Hour)
	reviewer := "adm1"
	rejected := applicant("u1", account.BadgeRejected)
	rejected.Badge.Note = "too few works"
	rejected.Badge.ReviewedAt = &reviewedAt
	rejected.Badge.ReviewedBy = &reviewer

	store := newFakeAccountStore(rejected)
	service := testService(store)

	state, err := service.Apply(context.Background(), "u1", "second try")
	require.NoError(t, err)

	assert.Equal(t, account.BadgePending, state.Status)
	assert.Empty(t, state.Note)
	assert.Nil(t, state.ReviewedAt)
	assert.Nil(t, state.ReviewedBy)
}

func TestApprove_Pending(t *testing.T) {
	pending := applicant("u1", account.BadgePending)
	pending.Badge.Message = "my portfolio"
	store := newFakeAccountStore(pending)
	service := testService(store)

	state, err := service.Approve(context.Background(), admin(), "u1")
	require.NoError(t, err)

	assert.Equal(t, account.BadgeApproved, state.Status)
	assert.Empty(t, state.Note)
	require.NotNil(t, state.ReviewedBy)
	assert.Equal(t, "adm1", *state.ReviewedBy)
	require.NotNil(t, state.ReviewedAt)
}

func TestReject_KeepsNote(t *testing.T) {
	store := newFakeAccountStore(applicant("u1", account.BadgePending))
	service := testService(store)

	state, err := service.Reject(context.Background(), admin(), "u1", " needs more published work ")
	require.NoError(t, err)

	assert.Equal(t, account.BadgeRejected, state.Status)
	assert.Equal(t, "needs more published work", state.Note)
}

func TestReview_RequiresAdmin(t *testing.T) {
	store := newFakeAccountStore(applicant("u1", account.BadgePending))
	service := testService(store)

	moderator := sec.Actor{ID: "m1", Role: sec.RoleModerator}
	_, err := service.Approve(context.Background(), moderator, "u1")
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))

	_, err = service.Reject(context.Background(), moderator, "u1", "")
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
}

func TestReview_WithoutPendingApplication(t *testing.T) {
	store := newFakeAccountStore(applicant("u1", account.BadgeApproved))
	service := testService(store)

	_, err := service.Approve(context.Background(), admin(), "u1")
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))
}

func TestApply_ConflictAfterExhaustedRetries(t *testing.T) {
	store := newFakeAccountStore(applicant("u1", account.BadgeNone))
	store.conflicts = docstore.MaxWriteAttempts
	service := testService(store)

	_, err := service.Apply(context.Background(), "u1", "pitch")
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}
