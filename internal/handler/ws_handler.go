/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleSessionSocket function, which validates the
session reference, upgrades the HTTP connection to WebSocket, attaches the
activity channel to the session, and runs the client lifecycle.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"guruvani/internal/app/session"
	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/limiter"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/resp"
)

// HandleSessionSocket creates an HTTP HandlerFunc to process activity-channel
// connection requests for a tracked session.
func HandleSessionSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		sessionID := chi.URLParam(r, "id")
		if sessionID == "" {
			logx.Warn("WebSocket request rejected: Missing session id")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		sess := deps.Sessions.GetSession(sessionID)
		if sess == nil {
			logx.Info("WebSocket connection rejected: Session not found.", "session_id", sessionID)
			resp.RespondError(w, r, errs.NewError(errs.ErrSessionNotFound))
			return
		}
		if !sess.IsActive() {
			logx.Info("WebSocket connection rejected: Session already ended.", "session_id", sessionID)
			resp.RespondError(w, r, errs.NewError(errs.ErrSessionNotActive))
			return
		}

		logx.Info("Attempting to upgrade connection", "session_id", sessionID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := session.NewClient(sess, conn)

		go client.WritePump()

		logx.Info("Activity channel established", "session_id", sessionID, "room_name", sess.RoomName)

		sess.Attach(client)

		client.ReadPump()
	}
}
