package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mahanteshimath/duckdb-snowflake/internal/engine"
	"github.com/mahanteshimath/duckdb-snowflake/internal/observability"
	"github.com/mahanteshimath/duckdb-snowflake/internal/session"
	"github.com/mahanteshimath/duckdb-snowflake/internal/statement"
)

type remoteQueryRequest struct {
	SQL     string `json:"sql"`
	Explain bool   `json:"explain"`
}

type localQueryRequest struct {
	SQL string `json:"sql"`
}

func resultResponse(result engine.Result) map[string]any {
	return map[string]any{
		"columns":    result.Columns,
		"rows":       result.Rows,
		"row_count":  result.RowCount(),
		"elapsed_ms": result.Elapsed.Milliseconds(),
	}
}

func handleRemoteQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := requireConnected(deps, w, r)
	if !ok {
		return
	}

	var request remoteQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "sql is required", false, nil)
		return
	}

	remoteSQL := request.SQL
	if request.Explain {
		remoteSQL = "EXPLAIN " + statement.StripTrailingSemicolons(request.SQL)
	}

	result, err := s.Engine.RunRemote(r.Context(), remoteSQL, s.Secret())
	observability.ObserveQuery(string(session.ModeRemote), err, result.Elapsed)
	if err != nil {
		// Execution failures are non-fatal; the session stays connected.
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
		return
	}

	s.SetLastResult(request.SQL, result)
	s.RecordHistory(session.HistoryEntry{
		SQL:     request.SQL,
		Mode:    session.ModeRemote,
		Rows:    result.RowCount(),
		Elapsed: result.Elapsed,
		At:      time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, resultResponse(result))
}

// handleLocalQuery executes directly against the embedded engine. A script is
// split on semicolons and each statement runs in order; the first failure
// stops the run.
func handleLocalQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)

	var request localQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}

	statements := statement.SplitStatements(request.SQL)
	if len(statements) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "sql is required", false, nil)
		return
	}

	results := make([]map[string]any, 0, len(statements))
	for i, stmt := range statements {
		result, err := s.Engine.RunLocal(r.Context(), stmt)
		observability.ObserveQuery(string(session.ModeLocal), err, result.Elapsed)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, map[string]any{"statement_index": i})
			return
		}
		s.SetLastResult(stmt, result)
		s.RecordHistory(session.HistoryEntry{
			SQL:     stmt,
			Mode:    session.ModeLocal,
			Rows:    result.RowCount(),
			Elapsed: result.Elapsed,
			At:      time.Now().UTC(),
		})
		results = append(results, resultResponse(result))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)
	writeJSON(w, http.StatusOK, map[string]any{"history": s.History()})
}

func handleClearHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)
	s.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
