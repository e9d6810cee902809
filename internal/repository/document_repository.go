package repository

import (
	"context"
	"database/sql"
	"errors"

	"doc-vault-server/config"
	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/util"

	"github.com/jmoiron/sqlx"
)

const documentColumns = `id, user_id, title, storage_key, mime_type, language, size, created_at`

type DocumentRepository struct {
	*config.Database
}

func NewDocumentRepository(database *config.Database) *DocumentRepository {
	return &DocumentRepository{database}
}

// Create : сохраняем метаданные документа, created_at проставляет БД
func (r *DocumentRepository) Create(ctx context.Context, document *model.Document) error {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO documents (id, user_id, title, storage_key, mime_type, language, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.DB.QueryRowxContext(
		ctx,
		query,
		document.ID,
		document.OwnerID,
		document.Title,
		document.StorageKey,
		document.MimeType,
		document.Language,
		document.SizeBytes,
	).Scan(&document.CreatedAt)
	if err != nil {
		return util.LogError("[DocumentRepo] ошибка вставки документа", err)
	}

	return nil
}

// GetOwned : документ возвращается только владельцу, чужой и отсутствующий неразличимы
func (r *DocumentRepository) GetOwned(ctx context.Context, documentID string, ownerID string) (*model.Document, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2`

	var document model.Document
	err := sqlx.GetContext(ctx, r.DB, &document, query, documentID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[DocumentRepo] ошибка получения документа", err)
	}

	return &document, nil
}

// ListByOwner : все документы владельца, новые первыми
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	docs := []model.Document{}
	if err := sqlx.SelectContext(ctx, r.DB, &docs, query, ownerID); err != nil {
		return nil, util.LogError("[DocumentRepo] ошибка получения списка документов", err)
	}

	return docs, nil
}

// DeleteWithShares : удаляет ссылки и сам документ одной транзакцией
func (r *DocumentRepository) DeleteWithShares(ctx context.Context, documentID string, ownerID string) error {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return util.LogError("[DocumentRepo] не удалось начать транзакцию", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteShareLinks(ctx, tx, documentID, ownerID); err != nil {
		return err
	}

	deleted, err := deleteDocument(ctx, tx, documentID, ownerID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return apperror.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return util.LogError("[DocumentRepo] не удалось зафиксировать удаление", err)
	}

	return nil
}

// StorageKeyExists : есть ли строка, ссылающаяся на объект хранилища
func (r *DocumentRepository) StorageKeyExists(ctx context.Context, storageKey string) (bool, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM documents WHERE storage_key = $1)`
	if err := sqlx.GetContext(ctx, r.DB, &exists, query, storageKey); err != nil {
		return false, util.LogError("[DocumentRepo] ошибка проверки ключа хранилища", err)
	}
	return exists, nil
}

func deleteShareLinks(ctx context.Context, exec sqlx.ExtContext, documentID string, ownerID string) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM share_links WHERE document_id = $1 AND user_id = $2`, documentID, ownerID)
	if err != nil {
		return util.LogError("[DocumentRepo] ошибка удаления ссылок документа", err)
	}
	return nil
}

func deleteDocument(ctx context.Context, exec sqlx.ExtContext, documentID string, ownerID string) (int64, error) {
	result, err := exec.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, documentID, ownerID)
	if err != nil {
		return 0, util.LogError("[DocumentRepo] ошибка удаления документа", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, util.LogError("[DocumentRepo] не удалось проверить, удалён ли документ", err)
	}
	return rows, nil
}
