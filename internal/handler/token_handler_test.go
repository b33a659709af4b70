package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guruvani/internal/app/token"
	"guruvani/internal/configs"
)

func testDeps() *AppDeps {
	return &AppDeps{
		Config: &configs.AppConfig{
			Environment:      "development",
			LiveKitURL:       "wss://media.example.com",
			LiveKitAPIKey:    "APIxyz",
			LiveKitAPISecret: "secret-for-tests",
		},
		Issuer: token.NewIssuer("APIxyz", "secret-for-tests"),
	}
}

type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not the JSON envelope: %v (%s)", err, rec.Body.String())
	}

	return rec, env
}

func TestIssueTokenFixedRoomIsStable(t *testing.T) {
	deps := testDeps()
	route := token.RouteConfig{
		Naming:         token.RoomNaming{Fixed: DailySatsangRoom},
		IdentityPrefix: "satsang_user",
		TTL:            token.SharedRoomTTL,
		DefaultAgent:   "guruji-daily",
		HonorHostRole:  true,
	}
	h := HandleIssueToken(deps, route)

	rec1, env1 := doJSON(t, h, http.MethodPost, "/api/daily-satsang/token", `{}`)
	rec2, env2 := doJSON(t, h, http.MethodPost, "/api/daily-satsang/token", `{}`)

	if rec1.Code != http.StatusOK || rec2.Code != http.StatusOK {
		t.Fatalf("unexpected status %d / %d", rec1.Code, rec2.Code)
	}
	if env1.Data["roomName"] != "DailySatsang" || env2.Data["roomName"] != "DailySatsang" {
		t.Fatalf("fixed room drifted: %v vs %v", env1.Data["roomName"], env2.Data["roomName"])
	}
	if env1.Data["participantToken"] == env2.Data["participantToken"] {
		t.Fatal("each issuance must mint a fresh credential")
	}
	if env1.Data["agentName"] != "guruji-daily" {
		t.Fatalf("default agent not reported: %v", env1.Data["agentName"])
	}
	if got := rec1.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("credential response must be no-store, got %q", got)
	}
}

func TestIssueTokenGeneratedRoomsDiffer(t *testing.T) {
	deps := testDeps()
	route := token.RouteConfig{
		Naming:         token.RoomNaming{Prefix: "voice_assistant_room"},
		IdentityPrefix: "voice_assistant_user",
		TTL:            token.PrivateRoomTTL,
	}
	h := HandleIssueToken(deps, route)

	_, env1 := doJSON(t, h, http.MethodPost, "/api/connection-details", `{}`)
	_, env2 := doJSON(t, h, http.MethodPost, "/api/connection-details", `{}`)

	room1, _ := env1.Data["roomName"].(string)
	room2, _ := env2.Data["roomName"].(string)

	if !strings.HasPrefix(room1, "voice_assistant_room_") {
		t.Fatalf("unexpected room name %q", room1)
	}
	if room1 == room2 {
		t.Fatalf("generated rooms must be unique, both were %q", room1)
	}
}

func TestIssueTokenMissingGuruID(t *testing.T) {
	deps := testDeps()
	route := token.RouteConfig{
		Naming:      token.RoomNaming{Prefix: "guru"},
		TTL:         token.PrivateRoomTTL,
		RequireGuru: true,
	}
	h := HandleIssueToken(deps, route)

	rec, env := doJSON(t, h, http.MethodPost, "/api/guru/token", `{"language":"hi"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Message != "Missing guruId" {
		t.Fatalf("message = %q, want %q", env.Message, "Missing guruId")
	}
}

func TestIssueTokenMissingServerConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*configs.AppConfig)
		want   string
	}{
		{"url", func(c *configs.AppConfig) { c.LiveKitURL = "" }, "LIVEKIT_URL"},
		{"key", func(c *configs.AppConfig) { c.LiveKitAPIKey = "" }, "LIVEKIT_API_KEY"},
		{"secret", func(c *configs.AppConfig) { c.LiveKitAPISecret = "" }, "LIVEKIT_API_SECRET"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := testDeps()
			tc.mutate(deps.Config)

			h := HandleIssueToken(deps, token.RouteConfig{
				Naming: token.RoomNaming{Fixed: DailySatsangRoom},
			})

			rec, env := doJSON(t, h, http.MethodPost, "/api/daily-satsang/token", `{}`)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if !strings.Contains(env.Message, tc.want) {
				t.Fatalf("message %q does not name %q", env.Message, tc.want)
			}
		})
	}
}

func TestIssueTokenLanguagePrecedence(t *testing.T) {
	deps := testDeps()
	route := token.RouteConfig{
		Naming:         token.RoomNaming{Prefix: "voice_assistant_room"},
		IdentityPrefix: "voice_assistant_user",
	}
	h := HandleIssueToken(deps, route)

	// Header supplies the language when the body is silent.
	req := httptest.NewRequest(http.MethodPost, "/api/connection-details", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Language", "en")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}

	tokenStr, _ := env.Data["participantToken"].(string)
	claims, err := deps.Issuer.Parse(tokenStr)
	if err != nil {
		t.Fatal(err)
	}

	var meta token.Metadata
	if err := json.Unmarshal([]byte(claims.Metadata), &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Language != "en" {
		t.Fatalf("language = %q, want header value en", meta.Language)
	}
}

func TestIssueTokenHostRoleOnlyWhenHonored(t *testing.T) {
	deps := testDeps()

	honored := HandleIssueToken(deps, token.RouteConfig{
		Naming:        token.RoomNaming{Fixed: LiveSatsangRoom},
		HonorHostRole: true,
	})
	ignored := HandleIssueToken(deps, token.RouteConfig{
		Naming: token.RoomNaming{Prefix: "voice_assistant_room"},
	})

	_, envHost := doJSON(t, honored, http.MethodPost, "/api/livesatsang/token", `{"role":"host"}`)
	_, envPart := doJSON(t, ignored, http.MethodPost, "/api/connection-details", `{"role":"host"}`)

	parseGrant := func(env envelope) *token.VideoGrant {
		tokenStr, _ := env.Data["participantToken"].(string)
		claims, err := deps.Issuer.Parse(tokenStr)
		if err != nil {
			t.Fatal(err)
		}
		return claims.Video
	}

	if !parseGrant(envHost).RoomAdmin {
		t.Fatal("honored route must elevate the host")
	}
	if parseGrant(envPart).RoomAdmin {
		t.Fatal("non-honoring route must not elevate")
	}
}
