package s3

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/mahanteshimath/duckdb-snowflake/internal/storage"
)

func TestUploadUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "exports/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	info, err := store.Upload(context.Background(), "/ab12cd34/2026-02-19/result-090506.csv", []byte("a,b\n1,2\n"), "text/csv")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if fake.lastPutBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastPutBucket)
	}
	if fake.lastPutKey != "exports/prod/ab12cd34/2026-02-19/result-090506.csv" {
		t.Fatalf("key = %q", fake.lastPutKey)
	}
	if fake.lastPutSize != 8 {
		t.Fatalf("size = %d", fake.lastPutSize)
	}
	if fake.lastPutContentType != "text/csv" {
		t.Fatalf("content type = %q", fake.lastPutContentType)
	}
	if info.Key != fake.lastPutKey {
		t.Fatalf("info key = %q", info.Key)
	}
}

func TestUploadRejectsPathTraversal(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Upload(context.Background(), "../secrets.txt", []byte("x"), "text/plain"); err == nil {
		t.Fatal("expected path traversal validation error")
	}
	if _, err := store.Upload(context.Background(), "a/../../secrets.txt", []byte("x"), "text/plain"); err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestUploadRejectsEmptyKey(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "exports", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Upload(context.Background(), "  ", nil, "text/csv"); err == nil {
		t.Fatal("expected empty key validation error")
	}
}

func TestUploadWrapsClientError(t *testing.T) {
	fake := &fakeClient{putErr: fmt.Errorf("boom")}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Upload(context.Background(), "file.csv", []byte("x"), "text/csv"); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}

	endpoint, secure, err = parseEndpoint("localhost:9000", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "localhost:9000" || secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
}

type fakeClient struct {
	lastPutBucket      string
	lastPutKey         string
	lastPutSize        int64
	lastPutContentType string
	putErr             error
}

func (f *fakeClient) Put(_ context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	f.lastPutBucket = bucket
	f.lastPutKey = key
	f.lastPutSize = size
	f.lastPutContentType = contentType
	_, _ = io.Copy(io.Discard, reader)
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}
