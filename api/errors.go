package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/tally-z-sandbox/log"
)

// Error is the HTTP API error type: a sentinel message, a stable numeric
// code clients can branch on, and the HTTP status it travels with. The
// catalogue of instances lives in errors_definition.go.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// Error returns the underlying message, satisfying the error interface.
func (e Error) Error() string {
	return e.Err.Error()
}

// MarshalJSON encodes the message and the stable code. HTTPstatus is left
// out: it already travels in the response header.
//
// Example output: {"error":"election not found","code":40005}
func (e Error) MarshalJSON() ([]byte, error) {
	// the anonymous struct is needed to include the error string, since
	// json.Marshal never calls Err.Error() on its own
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{
		Err:  e.Err.Error(),
		Code: e.Code,
	})
}

// Write sends the error as a JSON response with the configured HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// With returns a copy of the error with s appended to the message. Code and
// HTTP status are preserved, so the copy stays matchable by clients.
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// Withf returns a copy of the error with the formatted string appended to
// the message.
func (e Error) Withf(format string, args ...any) Error {
	return e.With(fmt.Sprintf(format, args...))
}

// WithErr returns a copy of the error with err's message appended.
func (e Error) WithErr(err error) Error {
	return e.With(err.Error())
}
