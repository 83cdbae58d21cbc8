/*
Package handler provides the HTTP handlers and routing setup for the
planning-poker chat server.

This file contains the session bootstrap endpoint. A client calls it once to
obtain a fresh sessionId before opening the persistent websocket.
*/
package handler

import (
	"net/http"

	"pokerchat/internal/pkg/errs"
	"pokerchat/internal/pkg/resp"
)

// HandleStartSession allocates a new session and returns its id.
func HandleStartSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := deps.Hub.StartSession()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"sessionId": sessionID,
		})
	}
}
