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

type ShareLinkRepository struct {
	*config.Database
}

func NewShareLinkRepository(database *config.Database) *ShareLinkRepository {
	return &ShareLinkRepository{database}
}

// GetByDocument : существующая ссылка владельца на документ
func (r *ShareLinkRepository) GetByDocument(ctx context.Context, documentID string, ownerID string) (*model.ShareLink, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	return getShareLink(ctx, r.DB, documentID, ownerID)
}

// GetOrCreate : выдаёт ссылку идемпотентно
// При гонке двух запросов вставка проигравшего ничего не делает, и он перечитывает строку победителя
func (r *ShareLinkRepository) GetOrCreate(ctx context.Context, link *model.ShareLink) (*model.ShareLink, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	existing, err := getShareLink(ctx, r.DB, link.DocumentID, link.OwnerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO share_links (share_id, user_id, document_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, document_id) DO NOTHING
		RETURNING share_id, document_id, user_id, created_at
	`

	var created model.ShareLink
	err = sqlx.GetContext(ctx, r.DB, &created, query, link.ShareID, link.OwnerID, link.DocumentID)
	if errors.Is(err, sql.ErrNoRows) {
		return getShareLink(ctx, r.DB, link.DocumentID, link.OwnerID)
	}
	if err != nil {
		return nil, util.LogError("[ShareRepo] ошибка сохранения ссылки", err)
	}

	return &created, nil
}

// GetDocumentByShareID : документ по токену, без проверки владельца
func (r *ShareLinkRepository) GetDocumentByShareID(ctx context.Context, shareID string) (*model.Document, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT d.id, d.user_id, d.title, d.storage_key, d.mime_type, d.language, d.size, d.created_at
		FROM share_links AS s
		JOIN documents AS d ON d.id = s.document_id AND d.user_id = s.user_id
		WHERE s.share_id = $1
	`

	var document model.Document
	err := sqlx.GetContext(ctx, r.DB, &document, query, shareID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[ShareRepo] ошибка получения документа по ссылке", err)
	}

	return &document, nil
}

func getShareLink(ctx context.Context, exec sqlx.QueryerContext, documentID string, ownerID string) (*model.ShareLink, error) {
	query := `
		SELECT share_id, document_id, user_id, created_at
		FROM share_links
		WHERE document_id = $1 AND user_id = $2
	`

	var link model.ShareLink
	err := sqlx.GetContext(ctx, exec, &link, query, documentID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[ShareRepo] ошибка получения ссылки", err)
	}

	return &link, nil
}
