// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package blob abstracts the external object store that holds uploaded files
(PDFs and thumbnails).

The core never reads or writes file contents — it only holds opaque
references (URLs/paths) and issues best-effort deletions when content is
permanently removed. Deletion failures are logged, never propagated as
user-facing errors: a dangling blob is a cleanup problem, not a request
failure.
*/
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store is the narrow contract the core needs from an object store.
type Store interface {
	// Delete removes the object behind the reference. Implementations must
	// treat an already-missing object as success (idempotent cleanup).
	Delete(ctx context.Context, reference string) error
}

// # Filesystem Implementation

// FSStore deletes objects under a local root directory. References are
// root-relative paths as produced at upload time.
type FSStore struct {
	root   string
	logger *slog.Logger
}

// NewFSStore creates a filesystem-backed blob store rooted at root.
func NewFSStore(root string, logger *slog.Logger) *FSStore {
	return &FSStore{root: root, logger: logger}
}

// Delete implements [Store].
func (s *FSStore) Delete(_ context.Context, reference string) error {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(reference, "/"))
	fullPath := filepath.Join(s.root, cleaned)

	// A reference escaping the root is always invalid input, never a file to touch.
	if !strings.HasPrefix(fullPath, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return fmt.Errorf("blob: reference escapes storage root: %q", reference)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("blob: delete failed: %w", err)
	}

	return nil
}

// # No-op Implementation

// NopStore ignores deletions. Used when BLOB_ROOT is not configured
// (e.g. local development without uploaded assets on disk).
type NopStore struct{}

// Delete implements [Store].
func (NopStore) Delete(context.Context, string) error { return nil }

// # Best-effort Helper

// TryDelete deletes a set of references, logging failures instead of
// returning them.
//
// Content deletion must never fail because object cleanup failed — the
// database record is the source of truth, the blobs are garbage to collect.
func TryDelete(ctx context.Context, store Store, logger *slog.Logger, references ...string) {
	for _, reference := range references {
		if reference == "" {
			continue
		}
		if err := store.Delete(ctx, reference); err != nil {
			logger.WarnContext(ctx, "blob_cleanup_failed",
				slog.String("reference", reference),
				slog.Any("error", err),
			)
		}
	}
}
