package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mahanteshimath/duckdb-snowflake/internal/export"
	"github.com/mahanteshimath/duckdb-snowflake/internal/observability"
	"github.com/mahanteshimath/duckdb-snowflake/internal/storage"
)

type exportUploadRequest struct {
	Format string `json:"format"`
	Key    string `json:"key"`
}

func handleExportDownload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), false, nil)
		return
	}
	result, _, ok := s.LastResult()
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "NO_RESULT", "no query result to export", false, nil)
		return
	}

	data, err := export.Encode(format, result)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}

	observability.IncrementExport(string(format))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "result."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func handleExportUpload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)

	if deps.ExportSink == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_SINK_NOT_CONFIGURED", "object store uploads are not configured", false, nil)
		return
	}

	var request exportUploadRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid export request body", false, map[string]any{"details": err.Error()})
		return
	}
	format, err := export.ParseFormat(request.Format)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), false, nil)
		return
	}
	result, _, ok := s.LastResult()
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "NO_RESULT", "no query result to export", false, nil)
		return
	}

	key := request.Key
	if key == "" {
		key, err = storage.BuildExportKey(s.ID, string(format), time.Now().UTC())
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
			return
		}
	}

	data, err := export.Encode(format, result)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}

	info, err := deps.ExportSink.Upload(r.Context(), key, data, format.ContentType())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_UPLOAD_FAILED", err.Error(), true, nil)
		return
	}

	observability.IncrementExport(string(format))
	writeJSON(w, http.StatusOK, map[string]any{
		"key":  info.Key,
		"size": info.Size,
		"etag": info.ETag,
	})
}
