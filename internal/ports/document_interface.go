package ports

import (
	"context"
	"doc-vault-server/internal/model"
)

// DocumentRepository : SQL слой метаданных документов
type DocumentRepository interface {
	Create(ctx context.Context, document *model.Document) error
	GetOwned(ctx context.Context, documentID string, ownerID string) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)
	DeleteWithShares(ctx context.Context, documentID string, ownerID string) error
	StorageKeyExists(ctx context.Context, storageKey string) (bool, error)
}

// ShareLinkRepository : SQL слой публичных ссылок
type ShareLinkRepository interface {
	GetByDocument(ctx context.Context, documentID string, ownerID string) (*model.ShareLink, error)
	GetOrCreate(ctx context.Context, link *model.ShareLink) (*model.ShareLink, error)
	GetDocumentByShareID(ctx context.Context, shareID string) (*model.Document, error)
}

type DocumentService interface {
	Upload(ctx context.Context, ownerID string, input model.UploadInput) (*model.Document, error)
	List(ctx context.Context, ownerID string) (*model.DocumentList, error)
	View(ctx context.Context, ownerID string, documentID string) (*model.DocumentStream, error)
	Delete(ctx context.Context, ownerID string, documentID string) error
	CreateShareLink(ctx context.Context, ownerID string, documentID string) (string, error)
	ResolveShareLink(ctx context.Context, shareID string) (*model.DocumentStream, error)
}

// LanguageDetector : определяет язык текста, возвращает ISO 639-1 код или "unknown"
type LanguageDetector interface {
	Detect(text string) string
}
