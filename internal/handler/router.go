/*
Package handler provides the HTTP handlers and routing setup for the Guruvani session server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"guruvani/internal/app/token"
	"guruvani/internal/pkg/limiter"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/resp"
)

const (
	TokenRate   = 0.5
	TokenBurst  = 5
	StartRate   = 0.2
	StartBurst  = 3
	SocketRate  = 0.2
	SocketBurst = 5
)

// Shared satsang room names. Every caller of the same route must land in the
// identical room; these strings are part of the client contract.
const (
	DailySatsangRoom = "DailySatsang"
	LiveSatsangRoom  = "LiveSatsang"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	tokenLimiter := limiter.NewIPRateLimiter(rate.Limit(TokenRate), TokenBurst)
	startLimiter := limiter.NewIPRateLimiter(rate.Limit(StartRate), StartBurst)
	socketLimiter := limiter.NewIPRateLimiter(rate.Limit(SocketRate), SocketBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Language"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "Guruvani Session Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	// One parameterized issuer serves every token route; only the room
	// naming, TTL, and default agent differ.
	dailySatsangRoute := token.RouteConfig{
		Naming:         token.RoomNaming{Fixed: DailySatsangRoom},
		IdentityPrefix: "satsang_user",
		TTL:            token.SharedRoomTTL,
		DefaultAgent:   deps.Config.DailySatsangAgent,
		HonorHostRole:  true,
	}

	liveSatsangRoute := token.RouteConfig{
		Naming:         token.RoomNaming{Fixed: LiveSatsangRoom},
		IdentityPrefix: "satsang_user",
		TTL:            token.SharedRoomTTL,
		DefaultAgent:   deps.Config.LiveSatsangAgent,
		HonorHostRole:  true,
	}

	connectionDetailsRoute := token.RouteConfig{
		Naming:         token.RoomNaming{Prefix: "voice_assistant_room"},
		IdentityPrefix: "voice_assistant_user",
		TTL:            token.PrivateRoomTTL,
		DefaultAgent:   deps.Config.DefaultAgent,
	}

	guruRoute := token.RouteConfig{
		Naming:         token.RoomNaming{Prefix: "guru"},
		IdentityPrefix: "guru_user",
		TTL:            token.PrivateRoomTTL,
		DefaultAgent:   deps.Config.DefaultAgent,
		RequireGuru:    true,
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/daily-satsang/token", tokenLimiter.Middleware(HandleIssueToken(deps, dailySatsangRoute)).ServeHTTP)
		api.Post("/livesatsang/token", tokenLimiter.Middleware(HandleIssueToken(deps, liveSatsangRoute)).ServeHTTP)
		api.Post("/connection-details", tokenLimiter.Middleware(HandleIssueToken(deps, connectionDetailsRoute)).ServeHTTP)
		api.Post("/guru/token", tokenLimiter.Middleware(HandleIssueToken(deps, guruRoute)).ServeHTTP)

		api.Post("/session/start", startLimiter.Middleware(HandleStartSession(deps)).ServeHTTP)
		api.Get("/session/{id}", HandleGetSession(deps))
		api.Post("/session/{id}/end", HandleEndSession(deps))

		api.Post("/egress/start", HandleStartEgress(deps))
		api.Post("/egress/stop", HandleStopEgress(deps))

		api.Post("/coins/check-access", HandleCheckAccess(deps))
		api.Post("/coins/deduct", HandleDeduct(deps))

		api.Get("/trial", HandleTrialStatus(deps))
		api.Post("/trial/reset", HandleResetTrial(deps))

		api.Get("/recordings", HandleListRecordings(deps))
		api.Get("/recordings/{egressId}/url", HandleRecordingURL(deps))
		api.Get("/recordings/{egressId}/download", HandleRecordingDownload(deps))
		api.Delete("/recordings/{egressId}", HandleDeleteRecording(deps))
	})

	r.Get("/ws/session/{id}", HandleSessionSocket(deps, wsUpgrader, socketLimiter))

	return r
}
