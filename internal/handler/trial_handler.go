/*
Package handler provides HTTP handler functions for the free-trial clock.
*/
package handler

import (
	"net/http"

	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/req"
	"guruvani/internal/pkg/resp"
)

// HandleTrialStatus reports the user's remaining free-trial budget without
// starting the clock.
func HandleTrialStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		state, err := deps.Trial.Status(r.Context(), userID)
		if err != nil {
			logx.Error(err, "Failed to load trial state", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, state)
	}
}

type ResetTrialInput struct {
	UserID string `json:"userId"`
}

// HandleResetTrial renews a user's trial budget. Called after sign-in or a
// coin purchase upgrades the user out of trial gating.
func HandleResetTrial(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ResetTrialInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Trial.Reset(r.Context(), input.UserID); err != nil {
			logx.Error(err, "Failed to reset trial", "user_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"userId": input.UserID,
			"reset":  true,
		})
	}
}
