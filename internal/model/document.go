package model

import (
	"io"
	"time"
)

type Document struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"user_id" json:"user_id"`
	Title      string    `db:"title" json:"title"`
	StorageKey string    `db:"storage_key" json:"-"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	Language   string    `db:"language" json:"language"`
	SizeBytes  int64     `db:"size" json:"size"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type ShareLink struct {
	ShareID    string    `db:"share_id" json:"share_id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	OwnerID    string    `db:"user_id" json:"user_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DocumentView : документ в списке владельца, ссылки на хранилище наружу не отдаются
type DocumentView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	MimeType  string    `json:"mime_type"`
	Language  string    `json:"language"`
	SizeBytes int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ViewURL   string    `json:"viewUrl"`
	PublicURL string    `json:"publicUrl,omitempty"`
}

type QuotaView struct {
	UsedMB       float64 `json:"usedMB"`
	RemainingMB  float64 `json:"remainingMB"`
	UsagePercent float64 `json:"usagePercent"`
	MaxMB        float64 `json:"maxMB"`
}

type DocumentList struct {
	Documents []DocumentView `json:"documents"`
	Storage   QuotaView      `json:"storage"`
}

// DocumentStream : готовый к отдаче клиенту поток, ContentLength = -1 если размер неизвестен
type DocumentStream struct {
	ContentType        string
	ContentLength      int64
	ContentDisposition string
	Body               io.ReadCloser
}

type UploadInput struct {
	Filename string
	MimeType string
	Body     io.Reader
	Size     int64
	Language string
}

// BlobObject : ответ хранилища на чтение объекта
type BlobObject struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// BlobKey : ключ объекта в хранилище и время его последнего изменения
type BlobKey struct {
	Key          string
	LastModified time.Time
}

const (
	ReconcileOrphanBlob    = "orphan_blob"
	ReconcileStaleMetadata = "stale_metadata"
)

// ReconcileCandidate : запись о рассинхроне хранилища и метаданных
type ReconcileCandidate struct {
	Kind       string    `json:"kind"`
	StorageKey string    `json:"storage_key"`
	DocumentID string    `json:"document_id,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReconcileReport struct {
	Processed     int `json:"processed"`
	BlobsDeleted  int `json:"blobs_deleted"`
	RowsDeleted   int `json:"rows_deleted"`
	Requeued      int `json:"requeued"`
	SweptOrphans  int `json:"swept_orphans"`
	SweepFailures int `json:"sweep_failures"`
}
