package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/tally-z-sandbox/log"
)

// httpWriteJSON writes data as a JSON response. Marshaling happens before
// any header is written, so a marshal failure can still produce a clean 500.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(jdata, '\n')); err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	log.Debugw("api response", "bytes", len(jdata))
}

// httpWriteOK writes an empty 200 response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
}
