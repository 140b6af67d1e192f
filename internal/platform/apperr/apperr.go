// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package apperr defines the centralized error handling framework for Mirava.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: One constructor per recoverable failure kind of the trust engine.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the canonical error type for the Mirava API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// Meta carries structured, client-safe context (e.g. ban expiry for BANNED).
	Meta map[string]any `json:"meta,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Title") // Returns "Title not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Trust & Moderation Taxonomy (4xx)

// InsufficientPrivilege creates a 403 [AppError] for rank-based denials.
//
// It is distinct from the generic [Forbidden] so that clients (and tests)
// can tell a hierarchy violation apart from, say, a route-level gate.
func InsufficientPrivilege(msg string) *AppError {
	return &AppError{
		Code:       "INSUFFICIENT_PRIVILEGE",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// SelfActionDenied creates a 400 [AppError] for administrative actions an
// actor attempted against their own account (e.g. self-ban).
func SelfActionDenied(msg string) *AppError {
	return &AppError{
		Code:       "SELF_ACTION_DENIED",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Banned creates a 403 [AppError] carrying the ban reason and expiry.
//
// A nil until means the ban is permanent.
func Banned(reason string, until *time.Time) *AppError {
	meta := map[string]any{"reason": reason, "until": nil}
	if until != nil {
		meta["until"] = until.UTC().Format(time.RFC3339)
	}
	return &AppError{
		Code:       "BANNED",
		Message:    "Account is banned from uploading",
		HTTPStatus: http.StatusForbidden,
		Meta:       meta,
	}
}

// AlreadyPending creates a 409 [AppError] for a duplicate badge application.
func AlreadyPending(msg string) *AppError {
	return &AppError{
		Code:       "ALREADY_PENDING",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// AlreadyResolved creates a 409 [AppError] for a report that is already closed.
func AlreadyResolved(msg string) *AppError {
	return &AppError{
		Code:       "ALREADY_RESOLVED",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// VersionConflict creates a 409 [AppError] for an optimistic-concurrency
// failure that persisted after the bounded retry budget was exhausted.
func VersionConflict() *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    "The record was modified concurrently. Please retry.",
		HTTPStatus: http.StatusConflict,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for maintenance mode.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err is an [*AppError] carrying the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
