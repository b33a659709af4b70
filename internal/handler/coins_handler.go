/*
Package handler provides HTTP handler functions proxying the external coin
ledger, so browser clients never talk to the ledger service directly.
*/
package handler

import (
	"net/http"

	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/req"
	"guruvani/internal/pkg/resp"
)

type CheckAccessInput struct {
	UserID    string `json:"userId"`
	FeatureID string `json:"featureId"`
}

// HandleCheckAccess proxies the coin-gate query for one feature.
func HandleCheckAccess(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CheckAccessInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" || input.FeatureID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		access, err := deps.Ledger.CheckAccess(r.Context(), input.UserID, input.FeatureID)
		if err != nil {
			logx.Error(err, "Coin service unreachable", "user_id", input.UserID, "feature_id", input.FeatureID)
			resp.RespondError(w, r, errs.NewError(errs.ErrLedgerUnavailable))
			return
		}

		resp.RespondSuccess(w, r, access)
	}
}

type DeductInput struct {
	UserID    string         `json:"userId"`
	FeatureID string         `json:"featureId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HandleDeduct proxies a fixed-amount feature debit.
func HandleDeduct(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input DeductInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" || input.FeatureID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		result, err := deps.Ledger.Deduct(r.Context(), input.UserID, input.FeatureID, input.Metadata)
		if err != nil {
			logx.Error(err, "Coin deduction failed", "user_id", input.UserID, "feature_id", input.FeatureID)
			resp.RespondError(w, r, errs.NewError(errs.ErrLedgerUnavailable))
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}
