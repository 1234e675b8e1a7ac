package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// ObjectStore receives exported result files. Exports are written once and
// never rewritten, so the surface is upload plus existence check.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}
