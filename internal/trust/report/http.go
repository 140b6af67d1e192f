// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package report

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/anvubui/mirava/internal/platform/request"
	"github.com/anvubui/mirava/internal/platform/respond"
	"github.com/anvubui/mirava/internal/platform/validate"
)

// Handler implements the member-facing HTTP layer for abuse reports.
//
// Staff queue management (listing and resolving) lives under the admin
// surface; members can only file.
type Handler struct {
	reportService *Service
}

// NewHandler constructs a new report [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{reportService: service}
}

// Routes returns a [chi.Router] with the member-facing report endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", handler.file)
	return router
}

// fileRequest defines the expected JSON payload for filing a report.
type fileRequest struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason"`
}

/*
POST /api/v1/reports.

Description: Files an abuse report against a title or an account. Duplicate
reports against the same target are accepted; the staff queue deduplicates
by eye, not by constraint.

Request:
  - body: fileRequest

Response:
  - 201: Report: The filed report
  - 400: Validation: Unknown type, missing target, or empty reason
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) file(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input fileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.OneOf("type", input.Type, Types...).
		UUID("target_id", input.TargetID).
		Required("reason", input.Reason).
		MaxLen("reason", input.Reason, 2000)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	filed, err := handler.reportService.File(request.Context(), actor.ID, Type(input.Type), input.TargetID, input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, filed)
}
