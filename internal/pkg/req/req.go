/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates JSON body binding with strict format checks so handlers only
deal with well-formed input.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"guruvani/internal/pkg/errs"
)

// MaxBodyBytes caps the size of any JSON request body this service accepts.
const MaxBodyBytes int64 = 1 << 20 // 1 MB

// BindJSON binds the JSON request body to the destination struct dst.
// Unknown fields and trailing content are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// BindJSONLenient binds JSON like BindJSON but tolerates an empty body,
// leaving dst zero-valued. Used by routes whose fields are all optional.
func BindJSONLenient(r *http.Request, dst any) *errs.CustomError {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return BindJSON(r, dst)
}
