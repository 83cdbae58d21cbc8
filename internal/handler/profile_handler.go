/*
Package handler provides the HTTP handlers and routing setup for the
planning-poker chat server.

This file contains the profile endpoints: a lookup by display name and a REST
upsert mirroring the websocket updateProfile action. Profiles of names that
were never stored read back as null rather than an error.
*/
package handler

import (
	"net/http"

	"pokerchat/internal/pkg/errs"
	"pokerchat/internal/pkg/logx"
	"pokerchat/internal/pkg/req"
	"pokerchat/internal/pkg/resp"

	"pokerchat/internal/app/chat"
)

// HandleGetProfile returns the stored profile for a display name, or null.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		profile, err := deps.Profiles.Get(r.Context(), username)
		if err != nil {
			logx.Error(err, "Profile lookup failed", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"profile": profile,
		})
	}
}

// UpsertProfileInput is the request body for the profile upsert endpoint.
type UpsertProfileInput struct {
	Username string           `json:"username"`
	Profile  chat.UserProfile `json:"profile"`
}

// HandleUpsertProfile validates and persists a profile for a display name.
func HandleUpsertProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input UpsertProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := input.Profile.Validate(); err != nil {
			logx.Warn("Rejected invalid profile upsert", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrProfileInvalid))
			return
		}

		if err := deps.Profiles.Put(r.Context(), input.Username, input.Profile); err != nil {
			logx.Error(err, "Profile upsert failed", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
