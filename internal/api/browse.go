package api

import (
	"net/http"
	"strconv"

	"github.com/mahanteshimath/duckdb-snowflake/internal/config"
	"github.com/mahanteshimath/duckdb-snowflake/internal/session"
	"github.com/mahanteshimath/duckdb-snowflake/internal/statement"
)

// requireConnected resolves the caller's session and rejects the request when
// no connection is established.
func requireConnected(deps Dependencies, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := sessionFromRequest(deps, w, r)
	if !s.Connected() {
		writeError(r.Context(), w, http.StatusConflict, "NOT_CONNECTED", "connect before browsing", false, nil)
		return nil, false
	}
	return s, true
}

func requireParams(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	values := make([]string, 0, len(names))
	for _, name := range names {
		value := r.URL.Query().Get(name)
		if value == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", name+" query parameter is required", false, nil)
			return nil, false
		}
		values = append(values, value)
	}
	return values, true
}

// Browse fetches degrade to empty lists on remote failure; only preview and
// column detail surface execution errors.

func handleDatabases(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := requireConnected(deps, w, r)
	if !ok {
		return
	}
	names := s.Engine.FetchColumn(r.Context(), statement.ShowDatabases(), s.Secret(), "name")
	writeJSON(w, http.StatusOK, map[string]any{"databases": names})
}

func handleSchemas(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := requireConnected(deps, w, r)
	if !ok {
		return
	}
	params, ok := requireParams(w, r, "database")
	if !ok {
		return
	}
	database := params[0]
	schemas := s.Engine.FetchColumn(r.Context(), statement.ListSchemas(database), s.Secret(), "SCHEMA_NAME")
	s.SetSelection(database, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"database": database, "schemas": schemas})
}

func handleTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := requireConnected(deps, w, r)
	if !ok {
		return
	}
	params, ok := requireParams(w, r, "database", "schema")
	if !ok {
		return
	}
	database, schema := params[0], params[1]
	tables := s.Engine.FetchColumn(r.Context(), statement.ListTables(database, schema), s.Secret(), "TABLE_NAME")
	s.SetSelection(database, schema, "")
	writeJSON(w, http.StatusOK, map[string]any{"database": database, "schema": schema, "tables": tables})
}

func handleColumns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := requireConnected(deps, w, r)
	if !ok {
		return
	}
	params, ok := requireParams(w, r, "database", "schema", "table")
	if !ok {
		return
	}
	database, schema, table := params[0], params[1], params[2]

	result, err := s.Engine.RunRemote(r.Context(), statement.ListColumns(database, schema, table), s.Secret())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
		return
	}
	s.SetSelection(database, schema, table)
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func handlePreview(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := requireConnected(deps, w, r)
	if !ok {
		return
	}
	params, ok := requireParams(w, r, "database", "schema", "table")
	if !ok {
		return
	}
	database, schema, table := params[0], params[1], params[2]
	limit := previewLimit(cfg, r.URL.Query().Get("limit"))

	result, err := s.Engine.RunRemote(r.Context(), statement.PreviewTable(database, schema, table, limit), s.Secret())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
		return
	}
	s.SetSelection(database, schema, table)
	s.SetLastResult(statement.PreviewTable(database, schema, table, limit), result)

	response := resultResponse(result)
	response["limit"] = limit
	if counts := s.Engine.FetchColumn(r.Context(), statement.CountRows(database, schema, table), s.Secret(), "ROW_COUNT"); len(counts) > 0 {
		response["total_rows"] = counts[0]
	}
	writeJSON(w, http.StatusOK, response)
}

// previewLimit clamps the requested preview size to the configured bounds.
func previewLimit(cfg config.Config, raw string) int {
	limit := cfg.Explorer.PreviewDefault
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < cfg.Explorer.PreviewMin {
		limit = cfg.Explorer.PreviewMin
	}
	if limit > cfg.Explorer.PreviewMax {
		limit = cfg.Explorer.PreviewMax
	}
	return limit
}
