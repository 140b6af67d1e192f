// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

// Authentication and authorization middleware.
//
// # Flow
//
// [Authenticate] verifies the identity-provider token and stores the claims.
// [ResolveActor] maps the verified subject onto a Mirava account projection.
// [RequireAuth] and [RequireRole] gate routes on the resolved actor.
package middleware

import (
	"net/http"
	"strings"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/ctxutil"
	"github.com/anvubui/mirava/internal/platform/respond"
	"github.com/anvubui/mirava/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the concrete
// [sec.IdentityVerifier], allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.IdentityClaims, error)
}

// ActorResolver maps a verified identity subject onto a platform account.
//
// Implemented by the account service; returns nil (no error) when the
// identity has never been synced into an account.
type ActorResolver interface {
	ResolveActor(r *http.Request, subjectID string) (*sec.Actor, error)
}

// Authenticate extracts and verifies the bearer token from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the token via [TokenVerifier].
//  4. Inject [*sec.IdentityClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithIdentity(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// ResolveActor loads the Mirava account behind the verified identity.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. Anonymous requests
// and identities without a synced account pass through with no actor set;
// gating happens later in [RequireAuth] / [RequireRole].
func ResolveActor(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetIdentity(request.Context())
			if claims == nil {
				next.ServeHTTP(writer, request)
				return
			}

			actor, err := resolver.ResolveActor(request, claims.SubjectID())
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			if actor == nil {
				// Verified identity, but no synced account yet (pre /auth/sync).
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithActor(request.Context(), actor)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not backed by a synced account.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate] and [ResolveActor].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		actor := ctxutil.GetActor(request.Context())
		if actor == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the acting account doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate] and [ResolveActor].
// It automatically implies [RequireAuth] so you don't need to mount both.
//
// # Flow
//  1. Check if [*sec.Actor] exists in context (implies AuthN).
//  2. Check if the actor's role meets or exceeds the required target role
//     using [sec.UserRole.AtLeast].
//  3. If insufficient, abort with HTTP 403 Forbidden.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			actor := ctxutil.GetActor(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if actor == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !actor.Role.AtLeast(role) {
				respond.Error(writer, request, apperr.InsufficientPrivilege("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
