/*
Package handler provides HTTP handler functions for the recording catalog:
listing persisted recordings, minting playback URLs, proxied playback, and
retention deletes.
*/
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guruvani/internal/app/db"
	"guruvani/internal/pkg/errs"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/randx"
	"guruvani/internal/pkg/resp"
)

// PlaybackURLTTL bounds the life of minted playback links.
const PlaybackURLTTL = 15 * time.Minute

// HandleListRecordings lists the persisted recordings of one room.
func HandleListRecordings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomName := r.URL.Query().Get("roomName")
		if roomName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingRoomName))
			return
		}

		recordings, err := deps.DB.ListRecordingsByRoom(r.Context(), roomName)
		if err != nil {
			logx.Error(err, "Failed to list recordings", "room_name", roomName)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomName":   roomName,
			"recordings": recordings,
		})
	}
}

// lookupRecording fetches the catalog row, translating the not-found and
// synthetic-ID cases into client errors.
func lookupRecording(deps *AppDeps, r *http.Request) (*db.Recording, *errs.CustomError) {
	egressID := chi.URLParam(r, "egressId")

	if randx.IsDisabledEgressID(egressID) {
		// Synthetic IDs have no file behind them.
		return nil, errs.NewError(errs.ErrRecordingNotFound)
	}

	rec, err := deps.DB.GetRecording(r.Context(), egressID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NewError(errs.ErrRecordingNotFound)
	}
	if err != nil {
		logx.Error(err, "Failed to fetch recording", "egress_id", egressID)
		return nil, errs.NewError(errs.ErrUnknown)
	}

	return rec, nil
}

// HandleRecordingURL mints a time-boxed playback URL for one recording.
func HandleRecordingURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, customErr := lookupRecording(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), rec.FilePath, PlaybackURLTTL)
		if err != nil {
			logx.Error(err, "Failed to presign playback URL", "egress_id", rec.EgressID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondNoStore(w, r, map[string]any{
			"egressId":  rec.EgressID,
			"url":       url,
			"expiresIn": int(PlaybackURLTTL / time.Second),
		})
	}
}

// HandleRecordingDownload streams the recording file through the server.
// Exists for deployments whose bucket endpoint is private, where presigned
// URLs would not resolve from the client.
func HandleRecordingDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, customErr := lookupRecording(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		body, err := deps.StorageService.Download(r.Context(), rec.FilePath)
		if err != nil {
			logx.Error(err, "Failed to download recording", "egress_id", rec.EgressID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		contentType := "application/octet-stream"
		if meta, err := deps.StorageService.GetObjectMetadata(r.Context(), rec.FilePath); err == nil {
			if ct, ok := meta["Content-Type"]; ok && ct != "" {
				contentType = ct
			}
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			logx.Error(err, "Failed to stream recording body", "egress_id", rec.EgressID)
		}
	}
}

// HandleDeleteRecording removes the recording object and its catalog row.
func HandleDeleteRecording(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, customErr := lookupRecording(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.StorageService.Delete(r.Context(), rec.FilePath); err != nil {
			logx.Error(err, "Failed to delete recording object", "egress_id", rec.EgressID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		if err := deps.DB.DeleteRecording(r.Context(), rec.EgressID); err != nil && !errors.Is(err, db.ErrNotFound) {
			logx.Error(err, "Failed to delete recording row", "egress_id", rec.EgressID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"egressId": rec.EgressID,
			"deleted":  true,
		})
	}
}
