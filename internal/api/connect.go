package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mahanteshimath/duckdb-snowflake/internal/config"
	"github.com/mahanteshimath/duckdb-snowflake/internal/observability"
	"github.com/mahanteshimath/duckdb-snowflake/internal/session"
	"github.com/mahanteshimath/duckdb-snowflake/internal/statement"
)

type connectRequest struct {
	Account              string `json:"account"`
	User                 string `json:"user"`
	AuthMethod           string `json:"auth_method"`
	Password             string `json:"password"`
	PrivateKeyPEM        string `json:"private_key_pem"`
	PrivateKeyPassphrase string `json:"private_key_passphrase"`
	OAuthToken           string `json:"oauth_token"`
	Database             string `json:"database"`
	Warehouse            string `json:"warehouse"`
	Role                 string `json:"role"`
}

type connectResponse struct {
	Connected  bool   `json:"connected"`
	SessionID  string `json:"session_id"`
	Connection string `json:"connection"`
	Extension  string `json:"extension"`
}

func (req connectRequest) validate() error {
	if strings.TrimSpace(req.Account) == "" {
		return fmt.Errorf("account is required")
	}
	if strings.TrimSpace(req.User) == "" {
		return fmt.Errorf("user is required")
	}
	switch statement.AuthMethod(req.AuthMethod) {
	case statement.AuthPassword:
		if req.Password == "" {
			return fmt.Errorf("password is required for password auth")
		}
	case statement.AuthKeyPair:
		if strings.TrimSpace(req.PrivateKeyPEM) == "" {
			return fmt.Errorf("private_key_pem is required for key_pair auth")
		}
	case statement.AuthOAuth:
		if req.OAuthToken == "" {
			return fmt.Errorf("oauth_token is required for oauth auth")
		}
	default:
		return fmt.Errorf("unsupported auth_method %q", req.AuthMethod)
	}
	return nil
}

func (req connectRequest) secretParams() statement.SecretParams {
	return statement.SecretParams{
		Account:              req.Account,
		User:                 req.User,
		Method:               statement.AuthMethod(req.AuthMethod),
		Password:             req.Password,
		PrivateKeyPEM:        req.PrivateKeyPEM,
		PrivateKeyPassphrase: req.PrivateKeyPassphrase,
		OAuthToken:           req.OAuthToken,
		Database:             req.Database,
		Warehouse:            req.Warehouse,
		Role:                 req.Role,
	}
}

// handleConnect runs the connect flow: validate, ensure the extension, create
// the per-session secret, probe connectivity. Any sub-step failure leaves the
// session disconnected.
func handleConnect(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request connectRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid connect request body", false, map[string]any{"details": err.Error()})
		return
	}
	if err := request.validate(); err != nil {
		observability.ObserveConnectAttempt(err)
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), false, nil)
		return
	}

	s := sessionFromRequest(deps, w, r)

	extensionDetail, err := s.Engine.EnsureExtension(r.Context())
	if err != nil {
		observability.ObserveConnectAttempt(err)
		writeError(r.Context(), w, http.StatusBadGateway, "EXTENSION_LOAD_FAILED", err.Error(), true, map[string]any{"install_source": cfg.Explorer.ExtensionSource})
		return
	}

	secretName := session.SecretName(s.ID)
	if err := s.Engine.CreateOrReplaceSecret(r.Context(), secretName, request.secretParams()); err != nil {
		observability.ObserveConnectAttempt(err)
		writeError(r.Context(), w, http.StatusBadGateway, "SECRET_CREATE_FAILED", err.Error(), true, nil)
		return
	}

	summary, err := s.Engine.TestConnection(r.Context(), secretName)
	if err != nil {
		observability.ObserveConnectAttempt(err)
		if dropErr := s.Engine.DropSecret(r.Context(), secretName); dropErr != nil && deps.Logger != nil {
			deps.Logger.Warn("drop secret after failed probe", "error", dropErr)
		}
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
		return
	}

	s.MarkConnected(secretName, summary)
	observability.ObserveConnectAttempt(nil)
	writeJSON(w, http.StatusOK, connectResponse{
		Connected:  true,
		SessionID:  s.ID,
		Connection: summary,
		Extension:  extensionDetail,
	})
}

// handleDisconnect tears the session down. Secret and attach cleanup are
// best-effort; the state reset happens regardless.
func handleDisconnect(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)

	if alias := s.AttachAlias(); alias != "" {
		if err := s.Engine.Detach(r.Context(), alias); err != nil && deps.Logger != nil {
			deps.Logger.Warn("detach on disconnect", "alias", alias, "error", err)
		}
	}
	if secret := s.Secret(); secret != "" {
		if err := s.Engine.DropSecret(r.Context(), secret); err != nil && deps.Logger != nil {
			deps.Logger.Warn("drop secret on disconnect", "error", err)
		}
	}

	s.Reset()
	s.Engine.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"connected": false, "session_id": s.ID})
}

func handleStatus(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)
	database, schema, table := s.Selection()
	status := map[string]any{
		"connected":     s.Connected(),
		"session_id":    s.ID,
		"connection":    s.ConnPreview(),
		"attach_alias":  s.AttachAlias(),
		"history_count": len(s.History()),
		"selection": map[string]string{
			"database": database,
			"schema":   schema,
			"table":    table,
		},
	}
	if result, lastSQL, ok := s.LastResult(); ok {
		status["last_query"] = map[string]any{
			"sql":        lastSQL,
			"rows":       result.RowCount(),
			"elapsed_ms": result.Elapsed.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, status)
}

type attachRequest struct {
	Alias string `json:"alias"`
}

func handleAttach(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)
	if !s.Connected() {
		writeError(r.Context(), w, http.StatusConflict, "NOT_CONNECTED", "connect before attaching", false, nil)
		return
	}

	var request attachRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid attach request body", false, map[string]any{"details": err.Error()})
		return
	}
	if !statement.ValidIdent(request.Alias) {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", fmt.Sprintf("invalid attach alias %q", request.Alias), false, nil)
		return
	}

	if err := s.Engine.Attach(r.Context(), request.Alias, s.Secret()); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
		return
	}
	s.SetAttachAlias(request.Alias)
	writeJSON(w, http.StatusOK, map[string]any{"attached": true, "alias": request.Alias})
}

func handleDetach(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(deps, w, r)
	alias := s.AttachAlias()
	if alias == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION_FAILED", "no catalog is attached", false, nil)
		return
	}
	if err := s.Engine.Detach(r.Context(), alias); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
		return
	}
	s.SetAttachAlias("")
	writeJSON(w, http.StatusOK, map[string]any{"attached": false})
}
