/*
Package handler provides HTTP handler functions for starting and sweeping
room recordings.

These routes exist for operator tooling and for rooms whose lifecycle is not
server-owned (the shared satsang rooms); server-owned sessions pair egress
start and stop with their own lifecycle.
*/
package handler

import (
	"net/http"

	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/req"
	"guruvani/internal/pkg/resp"
)

type StartEgressInput struct {
	RoomName string `json:"roomName"`
	UserID   string `json:"userId,omitempty"`
}

// HandleStartEgress starts a room-composite recording.
func HandleStartEgress(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input StartEgressInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.RoomName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingRoomName))
			return
		}

		result, err := deps.Egress.Start(r.Context(), input.RoomName, input.UserID)
		if err != nil {
			logx.Error(err, "Egress start failed", "room_name", input.RoomName)
			resp.RespondError(w, r, errs.NewError(errs.ErrEgressStartFailed))
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}

type StopEgressInput struct {
	RoomName string `json:"roomName"`

	// EgressIDs are the recordings the caller believes it started. The sweep
	// stops every active recording for the room regardless; the list only
	// improves the untracked-recording diagnostics.
	EgressIDs []string `json:"egressIds,omitempty"`
}

// HandleStopEgress sweeps and stops all active recordings for a room.
func HandleStopEgress(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input StopEgressInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.RoomName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingRoomName))
			return
		}

		result, err := deps.Egress.Stop(r.Context(), input.RoomName, input.EgressIDs)
		if err != nil {
			logx.Error(err, "Egress stop sweep failed", "room_name", input.RoomName)
			resp.RespondError(w, r, errs.NewError(errs.ErrProviderUnavailable))
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}
