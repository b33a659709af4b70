/*
Package handler provides the HTTP handlers and routing setup for the Guruvani session server.

This file contains the parameterized credential-issuance handler. Every token
route is the same handler instantiated with a different token.RouteConfig;
only the room-naming strategy, TTL, default agent, and guru requirement vary.
*/
package handler

import (
	"net/http"

	"guruvani/internal/app/token"
	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/randx"
	"guruvani/internal/pkg/req"
	"guruvani/internal/pkg/resp"
)

// DefaultLanguage is assumed when neither the body nor the X-Language header
// names one.
const DefaultLanguage = "hi"

type agentDispatchInput struct {
	AgentName string `json:"agent_name"`
}

type roomConfigInput struct {
	Agents []agentDispatchInput `json:"agents,omitempty"`
}

type TokenInput struct {
	// ParticipantName is the display name shown to other participants.
	ParticipantName string `json:"participantName,omitempty"`

	// Role requests the permission tier; only routes that honor the host
	// role elevate it.
	Role string `json:"role,omitempty"`

	GuruID   string `json:"guruId,omitempty"`
	PlanID   string `json:"planId,omitempty"`
	Language string `json:"language,omitempty"`

	// RoomConfig optionally names the agent to dispatch into the room.
	RoomConfig *roomConfigInput `json:"room_config,omitempty"`
}

// transportConfigError reports the first missing media transport variable.
// The check runs per request so a misconfigured deployment fails loudly,
// naming the variable, instead of minting unverifiable credentials.
func transportConfigError(deps *AppDeps) *errs.CustomError {
	switch {
	case deps.Config.LiveKitURL == "":
		return errs.NewError(errs.ErrServerConfigMissing, "LIVEKIT_URL")
	case deps.Config.LiveKitAPIKey == "":
		return errs.NewError(errs.ErrServerConfigMissing, "LIVEKIT_API_KEY")
	case deps.Config.LiveKitAPISecret == "":
		return errs.NewError(errs.ErrServerConfigMissing, "LIVEKIT_API_SECRET")
	}
	return nil
}

// resolveLanguage applies the body > header > default precedence.
func resolveLanguage(r *http.Request, input *TokenInput) string {
	if input.Language != "" {
		return input.Language
	}
	if lang := r.Header.Get("X-Language"); lang != "" {
		return lang
	}
	return DefaultLanguage
}

// requestedAgent returns the agent named by the request, or the route default.
func requestedAgent(input *TokenInput, route token.RouteConfig) string {
	if input.RoomConfig != nil && len(input.RoomConfig.Agents) > 0 && input.RoomConfig.Agents[0].AgentName != "" {
		return input.RoomConfig.Agents[0].AgentName
	}
	return route.DefaultAgent
}

// HandleIssueToken creates an HTTP HandlerFunc minting media credentials
// under the given route configuration.
func HandleIssueToken(deps *AppDeps, route token.RouteConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfgErr := transportConfigError(deps); cfgErr != nil {
			resp.RespondError(w, r, cfgErr)
			return
		}

		var input TokenInput
		if customErr := req.BindJSONLenient(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if route.RequireGuru && input.GuruID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingGuruID))
			return
		}

		roomName, err := route.ResolveRoom(input.GuruID)
		if err != nil {
			logx.Error(err, "Failed to synthesize room name")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenGeneration))
			return
		}

		identity, err := randx.Identity(route.IdentityPrefix)
		if err != nil {
			logx.Error(err, "Failed to synthesize participant identity")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenGeneration))
			return
		}

		participantName := input.ParticipantName
		if participantName == "" {
			participantName = identity
		}

		role := token.RoleParticipant
		if route.HonorHostRole && input.Role == string(token.RoleHost) {
			role = token.RoleHost
		}

		agentName := requestedAgent(&input, route)

		params := token.Params{
			Identity:  identity,
			Name:      participantName,
			Room:      roomName,
			TTL:       route.TTL,
			Role:      role,
			AgentName: agentName,
			Metadata: &token.Metadata{
				Language: resolveLanguage(r, &input),
				GuruID:   input.GuruID,
				PlanID:   input.PlanID,
			},
		}

		participantToken, err := deps.Issuer.Mint(params)
		if err != nil {
			logx.Error(err, "Failed to mint participant credential", "room_name", roomName)
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenGeneration))
			return
		}

		data := map[string]any{
			"serverUrl":        deps.Config.LiveKitURL,
			"roomName":         roomName,
			"participantToken": participantToken,
			"participantName":  participantName,
		}
		if agentName != "" {
			data["agentName"] = agentName
		}

		resp.RespondNoStore(w, r, data)
	}
}
