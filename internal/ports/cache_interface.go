package ports

import (
	"context"
	"doc-vault-server/internal/model"
)

// ShareCache : Redis слой, документ по токену публичной ссылки
type ShareCache interface {
	SetSharedDocument(ctx context.Context, shareID string, document *model.Document) error
	GetSharedDocument(ctx context.Context, shareID string) (*model.Document, error)
	DeleteSharedDocument(ctx context.Context, shareID string) error
}

// ReconcileQueue : очередь записей о рассинхроне хранилища и БД
type ReconcileQueue interface {
	Enqueue(ctx context.Context, candidate model.ReconcileCandidate) error
	Dequeue(ctx context.Context, limit int) ([]model.ReconcileCandidate, error)
}
