// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/ctxutil"
	"github.com/anvubui/mirava/internal/platform/sec"
)

/*
TestRequestID_RoundTrip verifies storage and retrieval of the correlation ID.
*/
func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, ctxutil.GetRequestID(ctx), "empty context has no request ID")

	ctx = ctxutil.WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", ctxutil.GetRequestID(ctx))
}

/*
TestLogger_FallsBackToDefault verifies the default logger is returned for bare contexts.
*/
func TestLogger_FallsBackToDefault(t *testing.T) {
	ctx := context.Background()

	logger := ctxutil.GetLogger(ctx)
	require.NotNil(t, logger)
	assert.Equal(t, slog.Default(), logger)

	custom := slog.Default().With(slog.String("scope", "test"))
	ctx = ctxutil.WithLogger(ctx, custom)
	assert.Equal(t, custom, ctxutil.GetLogger(ctx))
}

/*
TestActor_RoundTrip verifies actor storage and the nil-for-anonymous contract.
*/
func TestActor_RoundTrip(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ctxutil.GetActor(ctx), "anonymous context has no actor")

	actor := &sec.Actor{ID: "acc-1", SubjectID: "sub-1", Role: sec.RoleModerator}
	ctx = ctxutil.WithActor(ctx, actor)

	got := ctxutil.GetActor(ctx)
	require.NotNil(t, got)
	assert.Equal(t, sec.RoleModerator, got.Role)
}

/*
TestIdentity_RoundTrip verifies identity claim storage.
*/
func TestIdentity_RoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.GetIdentity(ctx))

	claims := &sec.IdentityClaims{Email: "reader@example.com"}
	ctx = ctxutil.WithIdentity(ctx, claims)

	got := ctxutil.GetIdentity(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "reader@example.com", got.Email)
}
