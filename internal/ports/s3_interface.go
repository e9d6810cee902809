package ports

import (
	"context"
	"doc-vault-server/internal/model"
	"io"
)

// BlobStore : объектное хранилище файлов
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*model.BlobObject, error)
	Delete(ctx context.Context, key string) error
	PublicURL(ctx context.Context, key string) (string, error)
	ListKeys(ctx context.Context, prefix string) ([]model.BlobKey, error)
}
