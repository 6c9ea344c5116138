package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cruciblelabs/crucible/internal/sandbox"
	"github.com/cruciblelabs/crucible/internal/storage"
)

// maxRequestBodyBytes bounds how much source text one request may carry.
const maxRequestBodyBytes = 1 << 20 // 1MB

var errBadShape = errors.New("request body is not exactly {code}")

// executeResponse is the JSON body returned for every completed
// execution, timeouts included. ExitCode is null when the child was
// force-killed before reporting an exit status.
type executeResponse struct {
	ExitCode *int   `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// parseExecuteRequest enforces the request shape: a JSON object whose
// key set is exactly {code}, with a string value. Wrong casing, extra
// or missing keys are all rejected before any side effect occurs.
func parseExecuteRequest(body []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", errBadShape
	}
	raw, ok := fields["code"]
	if !ok || len(fields) != 1 {
		return "", errBadShape
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return "", errBadShape
	}
	return code, nil
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	code, err := parseExecuteRequest(body)
	if err != nil {
		// Fixed message, no echo of the input.
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	started := time.Now()
	res, err := s.engine.Run(r.Context(), code)
	if err != nil {
		if errors.Is(err, sandbox.ErrSpawn) {
			s.record(started, &sandbox.Result{Duration: time.Since(started)}, storage.OutcomeSpawnError)
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	outcome := storage.OutcomeOK
	if res.Killed {
		// The same forced kill serves both the deadline and a caller
		// that went away; history keeps them apart.
		if r.Context().Err() != nil {
			outcome = storage.OutcomeCancelled
		} else {
			outcome = storage.OutcomeKilled
		}
	}
	s.record(started, res, outcome)

	writeJSON(w, http.StatusOK, executeResponse{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	})
}

// record appends an execution history entry. Best-effort: failures are
// logged and never surfaced to the caller.
func (s *Server) record(started time.Time, res *sandbox.Result, outcome storage.Outcome) {
	rec := &storage.Record{
		ID:          uuid.New().String(),
		StartedAt:   started,
		DurationMS:  res.Duration.Milliseconds(),
		Outcome:     outcome,
		ExitCode:    res.ExitCode,
		StdoutBytes: len(res.Stdout),
		StderrBytes: len(res.Stderr),
	}
	if err := s.store.Insert(context.Background(), rec); err != nil {
		log.Printf("recording execution: %v", err)
	}
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if recs == nil {
		recs = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
