/*
Package handler provides HTTP handler functions for starting, inspecting, and
ending tracked voice sessions.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"guruvani/internal/app/ledger"
	"guruvani/internal/app/session"
	"guruvani/internal/app/token"
	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/randx"
	"guruvani/internal/pkg/req"
	"guruvani/internal/pkg/resp"
)

type StartSessionInput struct {
	UserID   string `json:"userId"`
	GuruID   string `json:"guruId,omitempty"`
	PlanID   string `json:"planId,omitempty"`
	Language string `json:"language,omitempty"`

	// FeatureID selects the ledger feature to gate and debit against.
	// Defaults to the private voice session feature.
	FeatureID string `json:"featureId,omitempty"`

	// AgentName overrides the deployment's default agent.
	AgentName string `json:"agentName,omitempty"`
}

// HandleStartSession gates, provisions, and registers one voice session:
// coin check, free-trial anchor for unpaid users, credential mint, and the
// session goroutine whose registration fires the paired egress start.
func HandleStartSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfgErr := transportConfigError(deps); cfgErr != nil {
			resp.RespondError(w, r, cfgErr)
			return
		}

		var input StartSessionInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		featureID := input.FeatureID
		if featureID == "" {
			featureID = ledger.FeatureVoiceSession
		}

		access, err := deps.Ledger.CheckAccess(r.Context(), input.UserID, featureID)
		if err != nil {
			logx.Error(err, "Coin service unreachable during session start", "user_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrLedgerUnavailable))
			return
		}

		if !access.HasAccess {
			// A closed gate is a normal outcome, not an error.
			resp.RespondSuccess(w, r, map[string]any{
				"started": false,
				"access":  access,
			})
			return
		}

		// Unpaid users run against the free-trial clock; the origin is
		// anchored on first start and survives reconnects.
		in := session.StartInput{
			UserID:    input.UserID,
			FeatureID: featureID,
		}

		var trialState any
		if input.PlanID == "" {
			state, err := deps.Trial.Begin(r.Context(), input.UserID)
			if err != nil {
				logx.Error(err, "Failed to load trial state", "user_id", input.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			if state.Expired {
				resp.RespondSuccess(w, r, map[string]any{
					"started": false,
					"trial":   state,
				})
				return
			}

			in.TrialDeadline = deps.Trial.Deadline(state)
			trialState = state
		}

		roomPrefix := "voice_assistant_room"
		if input.GuruID != "" {
			roomPrefix = "guru_" + input.GuruID
		}

		roomName, err := randx.RoomName(roomPrefix, "")
		if err != nil {
			logx.Error(err, "Failed to synthesize room name")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenGeneration))
			return
		}

		identity, err := randx.Identity("voice_assistant_user")
		if err != nil {
			logx.Error(err, "Failed to synthesize participant identity")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenGeneration))
			return
		}

		agentName := input.AgentName
		if agentName == "" {
			agentName = deps.Config.DefaultAgent
		}

		language := input.Language
		if language == "" {
			language = DefaultLanguage
		}

		participantToken, err := deps.Issuer.Mint(token.Params{
			Identity:  identity,
			Name:      identity,
			Room:      roomName,
			TTL:       token.PrivateRoomTTL,
			Role:      token.RoleParticipant,
			AgentName: agentName,
			Metadata: &token.Metadata{
				Language: language,
				GuruID:   input.GuruID,
				PlanID:   input.PlanID,
			},
		})
		if err != nil {
			logx.Error(err, "Failed to mint participant credential", "room_name", roomName)
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenGeneration))
			return
		}

		in.RoomName = roomName
		in.AgentName = agentName

		sess := deps.Sessions.StartSession(in)

		data := map[string]any{
			"started":          true,
			"sessionId":        sess.ID,
			"serverUrl":        deps.Config.LiveKitURL,
			"roomName":         roomName,
			"participantToken": participantToken,
			"participantName":  identity,
		}
		if agentName != "" {
			data["agentName"] = agentName
		}
		if trialState != nil {
			data["trial"] = trialState
		}

		resp.RespondNoStore(w, r, data)
	}
}

// HandleGetSession reports the live status of one tracked session.
func HandleGetSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")

		sess := deps.Sessions.GetSession(sessionID)
		if sess == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrSessionNotFound))
			return
		}

		resp.RespondSuccess(w, r, sess.Snapshot())
	}
}

type EndSessionInput struct {
	Reason string `json:"reason,omitempty"`
}

// HandleEndSession requests teardown of one tracked session. The teardown
// itself runs inside the session goroutine; this handler only signals it.
func HandleEndSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")

		sess := deps.Sessions.GetSession(sessionID)
		if sess == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrSessionNotFound))
			return
		}

		var input EndSessionInput
		if customErr := req.BindJSONLenient(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		reason := input.Reason
		if reason == "" {
			reason = session.EndReasonClient
		}

		sess.End(reason)

		resp.RespondSuccess(w, r, map[string]any{
			"sessionId": sessionID,
			"ending":    true,
		})
	}
}
