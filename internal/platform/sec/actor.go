// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package sec

// Actor is the minimal projection of an account that request handling and
// authorization decisions operate on.
//
// # Why not the full account entity?
//
// Handlers and middleware only ever need "who is acting and at what rank".
// Keeping this projection in sec avoids an import cycle between the
// middleware chain and the account domain, and forces lifecycle services to
// re-read the full account fresh before any mutation.
type Actor struct {
	// ID is the Mirava account UUID.
	ID string `json:"id"`

	// SubjectID is the identity-provider stable subject.
	SubjectID string `json:"subject_id"`

	// Role is the account's privilege rank at resolution time.
	Role UserRole `json:"role"`
}
