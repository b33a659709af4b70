/*
Package errs provides custom error types and application-level error code constants.

This file maps error codes to their CustomError template, standardizing HTTP
responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Session and Room Business Logic Errors
	ErrMissingRoomName:  {Code: ErrMissingRoomName, Message: "roomName is required", Status: http.StatusBadRequest},
	ErrMissingGuruID:    {Code: ErrMissingGuruID, Message: "Missing guruId", Status: http.StatusBadRequest},
	ErrSessionNotFound:  {Code: ErrSessionNotFound, Message: "Session not found.", Status: http.StatusNotFound},
	ErrSessionNotActive: {Code: ErrSessionNotActive, Message: "Session has already ended.", Status: http.StatusConflict},

	// 3xxx: Credential and Configuration Errors
	ErrServerConfigMissing: {Code: ErrServerConfigMissing, Message: "%s is not defined", Status: http.StatusInternalServerError},
	ErrTokenGeneration:     {Code: ErrTokenGeneration, Message: "Failed to create access credential.", Status: http.StatusInternalServerError},

	// 4xxx: Collaborator (Upstream Service) Errors
	ErrLedgerUnavailable:   {Code: ErrLedgerUnavailable, Message: "Coin service is unavailable. Please try again later.", Status: http.StatusBadGateway},
	ErrEgressStartFailed:   {Code: ErrEgressStartFailed, Message: "Recording could not be started.", Status: http.StatusBadGateway},
	ErrProviderUnavailable: {Code: ErrProviderUnavailable, Message: "Media service is unavailable. Please try again later.", Status: http.StatusBadGateway},
	ErrRecordingNotFound:   {Code: ErrRecordingNotFound, Message: "Recording not found.", Status: http.StatusNotFound},
	ErrStorageFailed:       {Code: ErrStorageFailed, Message: "Recording archive operation failed.", Status: http.StatusInternalServerError},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
