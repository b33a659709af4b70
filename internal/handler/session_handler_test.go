package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"guruvani/internal/app/db"
	"guruvani/internal/app/egress"
	"guruvani/internal/app/ledger"
	"guruvani/internal/app/session"
	"guruvani/internal/app/token"
	"guruvani/internal/app/trial"
	"guruvani/internal/configs"
)

type memTrialStore struct {
	origins map[string]time.Time
}

func (m *memTrialStore) GetOrCreateTrialStart(_ context.Context, userID string) (time.Time, error) {
	if at, ok := m.origins[userID]; ok {
		return at, nil
	}
	at := time.Now()
	m.origins[userID] = at
	return at, nil
}

func (m *memTrialStore) GetTrialStart(_ context.Context, userID string) (time.Time, error) {
	at, ok := m.origins[userID]
	if !ok {
		return time.Time{}, db.ErrNotFound
	}
	return at, nil
}

func (m *memTrialStore) ResetTrialStart(_ context.Context, userID string) error {
	delete(m.origins, userID)
	return nil
}

// flowDeps assembles a working dependency graph: a stubbed coin service, an
// in-memory trial store, disabled egress, and a real session manager.
func flowDeps(t *testing.T, grantAccess bool) (*AppDeps, *session.Manager) {
	t.Helper()

	coinSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/coins/check-access":
			json.NewEncoder(w).Encode(map[string]any{
				"success":   true,
				"hasAccess": grantAccess,
				"reason":    "insufficient_coins",
			})
		case "/coins/deduct":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "coinsDeducted": 10})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(coinSrv.Close)

	ledgerClient := ledger.NewClient(coinSrv.URL)
	egressService := egress.NewService(egress.Config{Enabled: false}, nil, nil)
	trialService := trial.NewService(&memTrialStore{origins: make(map[string]time.Time)}, 15*time.Minute)

	manager := session.NewManager(time.Minute, session.Deps{
		Recorder: egressService,
		Debiter:  ledgerClient,
	})
	t.Cleanup(manager.Shutdown)

	deps := &AppDeps{
		Config: &configs.AppConfig{
			Environment:      "development",
			LiveKitURL:       "wss://media.example.com",
			LiveKitAPIKey:    "APIxyz",
			LiveKitAPISecret: "secret-for-tests",
			DefaultAgent:     "guruji",
			IdleTimeout:      time.Minute,
			TrialBudget:      15 * time.Minute,
		},
		Sessions: manager,
		Issuer:   token.NewIssuer("APIxyz", "secret-for-tests"),
		Egress:   egressService,
		Ledger:   ledgerClient,
		Trial:    trialService,
	}

	return deps, manager
}

func TestStartSessionHappyPath(t *testing.T) {
	deps, manager := flowDeps(t, true)

	h := HandleStartSession(deps)
	rec, env := doJSON(t, h, http.MethodPost, "/api/session/start", `{"userId":"u1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Data["started"] != true {
		t.Fatalf("expected started=true, got %v", env.Data)
	}

	sessionID, _ := env.Data["sessionId"].(string)
	if sessionID == "" {
		t.Fatal("missing session ID")
	}

	roomName, _ := env.Data["roomName"].(string)
	if !strings.HasPrefix(roomName, "voice_assistant_room_") {
		t.Fatalf("unexpected room name %q", roomName)
	}
	if _, ok := env.Data["trial"]; !ok {
		t.Fatal("trial user response must carry the trial state")
	}
	if env.Data["agentName"] != "guruji" {
		t.Fatalf("default agent not applied: %v", env.Data["agentName"])
	}

	sess := manager.GetSession(sessionID)
	if sess == nil || !sess.IsActive() {
		t.Fatal("session not registered as active")
	}
}

func TestStartSessionDeniedByCoinGate(t *testing.T) {
	deps, manager := flowDeps(t, false)

	h := HandleStartSession(deps)
	rec, env := doJSON(t, h, http.MethodPost, "/api/session/start", `{"userId":"u1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("a closed gate is a normal response, got status %d", rec.Code)
	}
	if env.Data["started"] != false {
		t.Fatalf("expected started=false, got %v", env.Data)
	}
	if _, ok := env.Data["sessionId"]; ok {
		t.Fatal("no session must be created when access is denied")
	}
	if manager.ActiveCount() != 0 {
		t.Fatalf("sessions registered = %d, want 0", manager.ActiveCount())
	}
}

func TestStartSessionRequiresUser(t *testing.T) {
	deps, _ := flowDeps(t, true)

	rec, _ := doJSON(t, HandleStartSession(deps), http.MethodPost, "/api/session/start", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionStatusAndEnd(t *testing.T) {
	deps, manager := flowDeps(t, true)
	router := Router(deps)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	_, env := doJSON(t, HandleStartSession(deps), http.MethodPost, "/api/session/start", `{"userId":"u1"}`)
	sessionID, _ := env.Data["sessionId"].(string)

	statusResp, err := http.Get(srv.URL + "/api/session/" + sessionID)
	if err != nil {
		t.Fatal(err)
	}
	defer statusResp.Body.Close()

	var statusEnv envelope
	if err := json.NewDecoder(statusResp.Body).Decode(&statusEnv); err != nil {
		t.Fatal(err)
	}
	if statusEnv.Data["status"] != string(session.StatusActive) {
		t.Fatalf("status = %v, want active", statusEnv.Data["status"])
	}

	endResp, err := http.Post(srv.URL+"/api/session/"+sessionID+"/end", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	endResp.Body.Close()
	if endResp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d", endResp.StatusCode)
	}

	sess := manager.GetSession(sessionID)
	if sess != nil {
		select {
		case <-sess.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("session did not tear down after end request")
		}
	}

	// Unknown IDs are a 404.
	missing, err := http.Get(srv.URL + "/api/session/does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing session status = %d, want 404", missing.StatusCode)
	}
}

func TestSessionSocketEndEvent(t *testing.T) {
	deps, manager := flowDeps(t, true)
	router := Router(deps)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	_, env := doJSON(t, HandleStartSession(deps), http.MethodPost, "/api/session/start", `{"userId":"u1"}`)
	sessionID, _ := env.Data["sessionId"].(string)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Activity then an explicit end over the activity channel.
	if err := conn.WriteJSON(map[string]any{"type": "activity", "source": "interaction"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "agent.control", "action": "end"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	// Trial countdown events may interleave before the end event arrives.
	for {
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatal(err)
		}
		if event.Type == "session.ended" {
			break
		}
	}
	if event.Reason != session.EndReasonClient {
		t.Fatalf("unexpected end reason %+v", event)
	}

	sess := manager.GetSession(sessionID)
	if sess != nil {
		select {
		case <-sess.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("session still running after client end")
		}
	}
}
