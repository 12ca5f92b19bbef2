package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/mahanteshimath/duckdb-snowflake/internal/engine"
	"github.com/mahanteshimath/duckdb-snowflake/internal/storage"
)

func TestExportDownloadCSV(t *testing.T) {
	resolver := &fakeResolver{}
	s, _ := newMockSession(t, resolver, "sess1")
	s.SetLastResult("SELECT 1", engine.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "ada"}, {int64(2), nil}},
	})
	handler := NewHandler(testConfig(), Dependencies{Sessions: resolver})

	recorder := doRequest(t, handler, http.MethodGet, "/v1/export?format=csv", "sess1", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	if got := recorder.Header().Get("Content-Disposition"); !strings.Contains(got, "result.csv") {
		t.Fatalf("content disposition = %q", got)
	}
	want := "id,name\n1,ada\n2,\n"
	if recorder.Body.String() != want {
		t.Fatalf("body = %q, want %q", recorder.Body.String(), want)
	}
}

func TestExportDownloadWithoutResult(t *testing.T) {
	resolver := &fakeResolver{}
	newMockSession(t, resolver, "sess1")
	handler := NewHandler(testConfig(), Dependencies{Sessions: resolver})

	recorder := doRequest(t, handler, http.MethodGet, "/v1/export?format=csv", "sess1", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeBody(t, recorder)
	if payload["error_code"] != "NO_RESULT" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestExportDownloadRejectsUnknownFormat(t *testing.T) {
	resolver := &fakeResolver{}
	newMockSession(t, resolver, "sess1")
	handler := NewHandler(testConfig(), Dependencies{Sessions: resolver})

	recorder := doRequest(t, handler, http.MethodGet, "/v1/export?format=xml", "sess1", "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeBody(t, recorder)
	if payload["error_code"] != "VALIDATION_FAILED" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestExportUploadUsesSink(t *testing.T) {
	resolver := &fakeResolver{}
	s, _ := newMockSession(t, resolver, "sess1")
	s.SetLastResult("SELECT 1", engine.Result{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}},
	})
	sink := &fakeSink{}
	handler := NewHandler(testConfig(), Dependencies{Sessions: resolver, ExportSink: sink})

	recorder := doRequest(t, handler, http.MethodPost, "/v1/export/upload", "sess1", `{"format":"ndjson"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if !strings.HasPrefix(sink.lastKey, "sess1/") || !strings.HasSuffix(sink.lastKey, ".ndjson") {
		t.Fatalf("key = %q", sink.lastKey)
	}
	if sink.lastContentType != "application/x-ndjson" {
		t.Fatalf("content type = %q", sink.lastContentType)
	}
	if string(sink.lastData) != `{"id":1}`+"\n" {
		t.Fatalf("data = %q", sink.lastData)
	}
	payload := decodeBody(t, recorder)
	if payload["key"] != sink.lastKey {
		t.Fatalf("response key = %v", payload["key"])
	}
}

func TestExportUploadHonorsExplicitKey(t *testing.T) {
	resolver := &fakeResolver{}
	s, _ := newMockSession(t, resolver, "sess1")
	s.SetLastResult("SELECT 1", engine.Result{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}})
	sink := &fakeSink{}
	handler := NewHandler(testConfig(), Dependencies{Sessions: resolver, ExportSink: sink})

	recorder := doRequest(t, handler, http.MethodPost, "/v1/export/upload", "sess1", `{"format":"csv","key":"custom/run-7.csv"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if sink.lastKey != "custom/run-7.csv" {
		t.Fatalf("key = %q", sink.lastKey)
	}
}

func TestExportUploadWithoutSink(t *testing.T) {
	resolver := &fakeResolver{}
	s, _ := newMockSession(t, resolver, "sess1")
	s.SetLastResult("SELECT 1", engine.Result{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}})
	handler := NewHandler(testConfig(), Dependencies{Sessions: resolver})

	recorder := doRequest(t, handler, http.MethodPost, "/v1/export/upload", "sess1", `{"format":"csv"}`)
	if recorder.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeBody(t, recorder)
	if payload["error_code"] != "EXPORT_SINK_NOT_CONFIGURED" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

type fakeSink struct {
	lastKey         string
	lastData        []byte
	lastContentType string
	err             error
}

func (f *fakeSink) Upload(_ context.Context, key string, data []byte, contentType string) (storage.ObjectInfo, error) {
	f.lastKey = key
	f.lastData = data
	f.lastContentType = contentType
	if f.err != nil {
		return storage.ObjectInfo{}, f.err
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ETag: "etag-1"}, nil
}
