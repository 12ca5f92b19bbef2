// Package storage abstracts the destination bucket for exported results.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ExportSink receives finished export artifacts.
type ExportSink interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error)
}
