// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package ban

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

// fakeAccountStore is an in-memory [AccountStore] with programmable
// version-conflict injection.
type fakeAccountStore struct {
	accounts  map[string]*account.Account
	conflicts int // UpdateIfVersion calls to fail before succeeding
	attempts  int
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
	store.attempts++
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

func testAccount(id string, role sec.UserRole) *account.Account {
	return &account.Account{ID: id, Role: role, Version: 1}
}

func testService(store *fakeAccountStore) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func actor(id string, role sec.UserRole) sec.Actor {
	return sec.Actor{ID: id, Role: role}
}

// # Predicate Tests

func TestIsEffective(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name      string
		state     account.BanState
		effective bool
	}{
		{"not banned", account.BanState{}, false},
		{"permanent ban", account.BanState{IsBanned: true}, true},
		{"future expiry", account.BanState{IsBanned: true, Until: &future}, true},
		{"past expiry", account.BanState{IsBanned: true, Until: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.effective, IsEffective(tt.state, now))
		})
	}
}

func TestAssertUploadAllowed_CarriesReasonAndExpiry(t *testing.T) {
	until := time.Now().Add(time.Hour)
	state := account.BanState{IsBanned: true, Until: &until, Reason: "spam uploads"}

	err := AssertUploadAllowed(state, time.Now())
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "BANNED", ae.Code)
	assert.Equal(t, "spam uploads", ae.Meta["reason"])
	assert.Equal(t, until.UTC().Format(time.RFC3339), ae.Meta["until"])
}

func TestAssertUploadAllowed_ExpiredBanPasses(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	state := account.BanState{IsBanned: true, Until: &past, Reason: "old"}

	assert.NoError(t, AssertUploadAllowed(state, time.Now()))
}

// # Service Tests

func TestService_Ban_ModeratorBansUser(t *testing.T) {
	store := newFakeAccountStore(testAccount("u1", sec.RoleUser))
	service := testService(store)

	updated, err := service.Ban(context.Background(), actor("m1", sec.RoleModerator), "u1", "  spam  ", 24*60)
	require.NoError(t, err)

	assert.True(t, updated.Ban.IsBanned)
	assert.Equal(t, "spam", updated.Ban.Reason)
	require.NotNil(t, updated.Ban.Until)
	assert.True(t, updated.Ban.Until.After(time.Now()))

	// The stored record was committed and the version advanced.
	stored := store.accounts["u1"]
	assert.True(t, stored.Ban.IsBanned)
	assert.Equal(t, int64(2), stored.Version)
}

func TestService_Ban_SelfBanDenied(t *testing.T) {
	store := newFakeAccountStore(testAccount("m1", sec.RoleModerator))
	service := testService(store)

	_, err := service.Ban(context.Background(), actor("m1", sec.RoleModerator), "m1", "oops", 0)
	assert.True(t, apperr.HasCode(err, "SELF_ACTION_DENIED"))
}

func TestService_Ban_ModeratorCannotBanAdmin(t *testing.T) {
	store := newFakeAccountStore(testAccount("a1", sec.RoleAdmin))
	service := testService(store)

	_, err := service.Ban(context.Background(), actor("m1", sec.RoleModerator), "a1", "power grab", 0)
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
	assert.False(t, store.accounts["a1"].Ban.IsBanned)
}

func TestService_Unban_ModeratorCannotUnbanAdmin(t *testing.T) {
	banned := testAccount("a1", sec.RoleAdmin)
	banned.Ban = account.BanState{IsBanned: true, Reason: "incident"}
	store := newFakeAccountStore(banned)
	service := testService(store)

	_, err := service.Unban(context.Background(), actor("m1", sec.RoleModerator), "a1")
	assert.True(t, apperr.HasCode(err, "INSUFFICIENT_PRIVILEGE"))
	assert.True(t, store.accounts["a1"].Ban.IsBanned)
}

func TestService_Unban_OwnerClearsBanRecord(t *testing.T) {
	until := time.Now().Add(time.Hour)
	banned := testAccount("a1", sec.RoleAdmin)
	banned.Ban = account.BanState{IsBanned: true, Until: &until, Reason: "incident"}
	store := newFakeAccountStore(banned)
	service := testService(store)

	updated, err := service.Unban(context.Background(), actor("o1", sec.RoleOwner), "a1")
	require.NoError(t, err)

	assert.False(t, updated.Ban.IsBanned)
	assert.Nil(t, updated.Ban.Until)
	assert.Empty(t, updated.Ban.Reason)
}

func TestService_Ban_RetriesOnVersionConflict(t *testing.T) {
	store := newFakeAccountStore(testAccount("u1", sec.RoleUser))
	store.conflicts = 2 // lose the race twice, win on the final attempt
	service := testService(store)

	_, err := service.Ban(context.Background(), actor("a1", sec.RoleAdmin), "u1", "spam", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, store.attempts)
}

func TestService_Ban_ConflictAfterExhaustedRetries(t *testing.T) {
	store := newFakeAccountStore(testAccount("u1", sec.RoleUser))
	store.conflicts = docstore.MaxWriteAttempts
	service := testService(store)

	_, err := service.Ban(context.Background(), actor("a1", sec.RoleAdmin), "u1", "spam", 0)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
	assert.False(t, store.accounts["u1"].Ban.IsBanned)
}

func TestService_AssertCanUpload(t *testing.T) {
	banned := testAccount("u1", sec.RoleUser)
	banned.Ban = account.BanState{IsBanned: true, Reason: "spam"}
	store := newFakeAccountStore(banned, testAccount("u2", sec.RoleUser))
	service := testService(store)

	assert.True(t, apperr.HasCode(service.AssertCanUpload(context.Background(), "u1"), "BANNED"))
	assert.NoError(t, service.AssertCanUpload(context.Background(), "u2"))
}
