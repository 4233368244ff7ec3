package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dannyrandall/moviesdb/internal/store"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultNoData  = "No data found"
)

// envelope is the body of every response. Failures always carry
// Result "failure" and an Error message.
type envelope struct {
	ID     string `json:"id,omitempty"`
	Result string `json:"result"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, log *log.Logger, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %s", err)
	}
}

// httpError sends msg to the client and logs the formatted detail.
func httpError(w http.ResponseWriter, code int, log *log.Logger, msg, format string, a ...any) {
	log.Printf("returning error %d: %s", code, fmt.Sprintf(format, a...))
	writeJSON(w, code, log, envelope{Result: resultFailure, Error: msg})
}

func badRequest(w http.ResponseWriter, log *log.Logger, err error) {
	msg := "Invalid request"
	var ie *inputError
	if errors.As(err, &ie) {
		msg = ie.msg
	}

	httpError(w, http.StatusBadRequest, log, msg, "%s", err)
}

// storeError maps a store failure to a response. Malformed ids are server
// errors, like every other failure apart from a missing record.
func storeError(w http.ResponseWriter, log *log.Logger, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpError(w, http.StatusNotFound, log, "Data not found", "%s: %s", op, err)
	default:
		httpError(w, http.StatusInternalServerError, log, "Internal Server Error", "%s: %s", op, err)
	}
}
