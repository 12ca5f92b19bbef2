// Package session holds the per-user explorer state: connection flag,
// secret identity, browse selections, last result, and bounded query history.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mahanteshimath/duckdb-snowflake/internal/engine"
)

// HistoryLimit caps the query history at the most recent entries.
const HistoryLimit = 50

// Mode identifies which execution path produced a history entry.
type Mode string

const (
	ModeRemote Mode = "snowflake_query"
	ModeLocal  Mode = "duckdb_local"
)

// HistoryEntry is an immutable record of one executed UI-level query.
type HistoryEntry struct {
	SQL     string        `json:"sql"`
	Mode    Mode          `json:"mode"`
	Rows    int           `json:"rows"`
	Elapsed time.Duration `json:"elapsed"`
	At      time.Time     `json:"at"`
}

// Session is the unit of state behind one explorer client. All fields are
// guarded by mu; the engine serializes its own handle access internally.
type Session struct {
	ID     string
	Engine *engine.Engine

	mu            sync.Mutex
	connected     bool
	secretName    string
	attachAlias   string
	connPreview   string
	currentDB     string
	currentSchema string
	currentTable  string
	lastResult    *engine.Result
	lastQuery     string
	history       []HistoryEntry
}

// New returns a disconnected session owning a fresh engine.
func New(id string, eng *engine.Engine) *Session {
	return &Session{ID: id, Engine: eng}
}

// NewID returns a random session identifier usable inside a secret name.
func NewID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// SecretName returns the per-session secret identifier. Scoping the name by
// session keeps concurrent sessions from racing on secret replacement.
func SecretName(sessionID string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, sessionID)
	return "sf_secret_" + cleaned
}

// MarkConnected records a successful connect flow.
func (s *Session) MarkConnected(secretName, preview string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.secretName = secretName
	s.connPreview = preview
}

// Reset clears all session state. It always succeeds; cleanup of remote
// resources happens before this and is best-effort.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.secretName = ""
	s.attachAlias = ""
	s.connPreview = ""
	s.currentDB = ""
	s.currentSchema = ""
	s.currentTable = ""
	s.lastResult = nil
	s.lastQuery = ""
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Secret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secretName
}

func (s *Session) ConnPreview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connPreview
}

func (s *Session) SetAttachAlias(alias string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachAlias = alias
}

func (s *Session) AttachAlias() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachAlias
}

// SetSelection records the current browse target.
func (s *Session) SetSelection(database, schema, table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDB = database
	s.currentSchema = schema
	s.currentTable = table
}

func (s *Session) Selection() (database, schema, table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDB, s.currentSchema, s.currentTable
}

// SetLastResult replaces the last-result singleton.
func (s *Session) SetLastResult(sqlText string, result engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = sqlText
	s.lastResult = &result
}

// LastResult returns the last result, or false when none exists.
func (s *Session) LastResult() (engine.Result, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return engine.Result{}, "", false
	}
	return *s.lastResult, s.lastQuery, true
}

// RecordHistory prepends an entry and truncates to HistoryLimit.
func (s *Session) RecordHistory(entry HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]HistoryEntry{entry}, s.history...)
	if len(s.history) > HistoryLimit {
		s.history = s.history[:HistoryLimit]
	}
}

// History returns a copy of the history, newest first.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops all history entries.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
