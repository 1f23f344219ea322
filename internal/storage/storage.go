// Package storage keeps uploaded photo bytes, either on local disk or in
// an S3 compatible bucket (Cloudflare R2 by default).
package storage

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotExist = errors.New("storage: object does not exist")

type Store interface {
	// Put stores data under key and returns the public URL for it.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Get returns ErrNotExist when nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete succeeds when the object is already gone.
	Delete(ctx context.Context, key string) error
}
