// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package docstore defines the optimistic-concurrency primitives shared by
every versioned repository.

Each top-level entity (Account, Content Record, Report) carries a monotonic
version column. Writers read the current version, compute the new state, and
commit conditionally on the version being unchanged. A failed condition means
another administrative action won the race; the caller re-reads and retries
from fresh state rather than silently overwriting the concurrent decision.

Architecture:

  - ErrVersionConflict: sentinel returned by conditional writes that lost a race.
  - MaxWriteAttempts: the bounded retry budget before surfacing CONFLICT.
  - WithRetry: the single retry loop used by all lifecycle services.
*/
package docstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/ctxutil"
)

// ErrVersionConflict signals that a conditional write observed a stale version.
//
// Repositories return it from every UpdateIfVersion-style method; only
// [WithRetry] should convert it into a client-facing error.
var ErrVersionConflict = errors.New("docstore: version conflict")

// MaxWriteAttempts bounds how many fresh-read/conditional-write cycles a
// mutation may take before giving up with CONFLICT.
const MaxWriteAttempts = 3

// WithRetry runs fn until it succeeds, fails with a non-conflict error, or
// exhausts [MaxWriteAttempts].
//
// # Contract
//
// fn MUST perform its own fresh read at the start of every invocation —
// retrying with stale in-memory state would re-create the exact lost-update
// hazard this loop exists to prevent.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error

	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		err = fn(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}

		ctxutil.GetLogger(ctx).WarnContext(ctx, "docstore_write_conflict_retry",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", MaxWriteAttempts),
		)
	}

	return apperr.VersionConflict()
}
