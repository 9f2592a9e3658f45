// Package handlers contains the HTTP handlers of the radar API. Handlers
// decode and validate requests, delegate to the application services, and
// render the wire types from pkg/types/radar. Every non-2xx response shares
// the {"error": {...}} envelope written by writeAppError.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// errorBody is the envelope of every non-2xx response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError renders err inside the error envelope, with the HTTP status
// mapped from its error code. Anything that is not an AppError is masked as
// an internal error so no internals leak to clients.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal("internal server error")
	}
	writeJSON(w, errors.HTTPStatus(appErr), errorBody{Error: errorDetail{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}})
}
