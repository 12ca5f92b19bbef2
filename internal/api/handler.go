package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mahanteshimath/duckdb-snowflake/internal/config"
	"github.com/mahanteshimath/duckdb-snowflake/internal/observability"
	"github.com/mahanteshimath/duckdb-snowflake/internal/session"
	"github.com/mahanteshimath/duckdb-snowflake/internal/storage"
)

// SessionHeader carries the client's session identifier. The server assigns
// one on first contact and echoes it on every response.
const SessionHeader = "X-Session-ID"

type ReadinessCheck func(ctx context.Context) error

// SessionResolver hands out per-client sessions. Satisfied by
// session.Registry; tests substitute fakes.
type SessionResolver interface {
	Get(id string) *session.Session
	Delete(id string)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Sessions          SessionResolver
	ExportSink        storage.ExportSink
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/connect", func(w http.ResponseWriter, r *http.Request) {
		handleConnect(cfg, deps, w, r)
	})
	protected.HandleFunc("POST /v1/disconnect", func(w http.ResponseWriter, r *http.Request) {
		handleDisconnect(deps, w, r)
	})
	protected.HandleFunc("GET /v1/status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(deps, w, r)
	})

	protected.HandleFunc("GET /v1/databases", func(w http.ResponseWriter, r *http.Request) {
		handleDatabases(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schemas", func(w http.ResponseWriter, r *http.Request) {
		handleSchemas(deps, w, r)
	})
	protected.HandleFunc("GET /v1/tables", func(w http.ResponseWriter, r *http.Request) {
		handleTables(deps, w, r)
	})
	protected.HandleFunc("GET /v1/columns", func(w http.ResponseWriter, r *http.Request) {
		handleColumns(deps, w, r)
	})
	protected.HandleFunc("GET /v1/preview", func(w http.ResponseWriter, r *http.Request) {
		handlePreview(cfg, deps, w, r)
	})

	protected.HandleFunc("POST /v1/query/remote", func(w http.ResponseWriter, r *http.Request) {
		handleRemoteQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query/local", func(w http.ResponseWriter, r *http.Request) {
		handleLocalQuery(deps, w, r)
	})
	protected.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	protected.HandleFunc("DELETE /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleClearHistory(deps, w, r)
	})

	protected.HandleFunc("POST /v1/attach", func(w http.ResponseWriter, r *http.Request) {
		handleAttach(deps, w, r)
	})
	protected.HandleFunc("POST /v1/detach", func(w http.ResponseWriter, r *http.Request) {
		handleDetach(deps, w, r)
	})

	protected.HandleFunc("GET /v1/export", func(w http.ResponseWriter, r *http.Request) {
		handleExportDownload(deps, w, r)
	})
	protected.HandleFunc("POST /v1/export/upload", func(w http.ResponseWriter, r *http.Request) {
		handleExportUpload(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/connect", protectedHandler)
	mux.Handle("POST /v1/disconnect", protectedHandler)
	mux.Handle("GET /v1/status", protectedHandler)
	mux.Handle("GET /v1/databases", protectedHandler)
	mux.Handle("GET /v1/schemas", protectedHandler)
	mux.Handle("GET /v1/tables", protectedHandler)
	mux.Handle("GET /v1/columns", protectedHandler)
	mux.Handle("GET /v1/preview", protectedHandler)
	mux.Handle("POST /v1/query/remote", protectedHandler)
	mux.Handle("POST /v1/query/local", protectedHandler)
	mux.Handle("GET /v1/history", protectedHandler)
	mux.Handle("DELETE /v1/history", protectedHandler)
	mux.Handle("POST /v1/attach", protectedHandler)
	mux.Handle("POST /v1/detach", protectedHandler)
	mux.Handle("GET /v1/export", protectedHandler)
	mux.Handle("POST /v1/export/upload", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckObjectStoreConfig gates readiness on export upload configuration when
// the object store is enabled.
func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	if !cfg.ObjectStore.Enabled {
		return nil
	}
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// sessionFromRequest resolves the caller's session from the session header,
// minting a fresh identifier when absent. The identifier is always echoed
// back so clients can adopt it.
func sessionFromRequest(deps Dependencies, w http.ResponseWriter, r *http.Request) *session.Session {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = session.NewID()
	}
	w.Header().Set(SessionHeader, id)
	return deps.Sessions.Get(id)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
