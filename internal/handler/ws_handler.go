/*
Package handler provides the HTTP handlers and routing setup for the
planning-poker chat server.

This file contains the websocket endpoint: rate limiting, the upgrade itself,
and starting the connection's read and write pumps. Everything after the
upgrade is protocol traffic handled by the Hub; a session binds itself to the
connection with a connect action frame.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"pokerchat/internal/app/chat"
	"pokerchat/internal/pkg/errs"
	"pokerchat/internal/pkg/limiter"
	"pokerchat/internal/pkg/logx"
	"pokerchat/internal/pkg/resp"
)

// HandleWebSocket upgrades the HTTP connection and runs the client pumps
// until the connection drops.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		conn := chat.NewConn(deps.Hub, ws)

		go conn.WritePump()

		conn.ReadPump(r.Context())
	}
}
