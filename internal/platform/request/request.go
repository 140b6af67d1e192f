// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/ctxutil"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID/Slug) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Identity extracts the verified identity-provider claims from the request context.

Returns nil if the request carried no valid bearer token.
*/
func Identity(request *http.Request) *sec.IdentityClaims {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request carries verified identity claims.

Returns:
  - *sec.IdentityClaims: The verified claims
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredIdentity(request *http.Request) (*sec.IdentityClaims, error) {
	claims := ctxutil.GetIdentity(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}

/*
Actor extracts the resolved platform account from the request context.

Returns nil for anonymous requests and for identities that have not been
synced into a Mirava account yet.
*/
func Actor(request *http.Request) *sec.Actor {
	return ctxutil.GetActor(request.Context())
}

/*
RequiredActor ensures the request is backed by a synced platform account.

Returns:
  - *sec.Actor: The acting account projection
  - error: apperr.Unauthorized if anonymous or unsynced
*/
func RequiredActor(request *http.Request) (*sec.Actor, error) {

	// Get the resolved account
	actor := ctxutil.GetActor(request.Context())

	// A verified token without a synced account is still unusable
	if actor == nil {
		return nil, apperr.Unauthorized("Account not synced")
	}

	return actor, nil
}

/*
RequiredActorID returns the account ID of the currently acting user.

Returns:
  - string: Account UUID
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredActorID(request *http.Request) (string, error) {
	actor, err := RequiredActor(request)
	if err != nil {
		return "", err
	}
	return actor.ID, nil
}
