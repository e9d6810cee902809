package repository

import (
	"context"
	"database/sql"
	"errors"

	"doc-vault-server/config"
	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/util"
)

type SessionRepository struct {
	*config.Database
}

func NewSessionRepository(database *config.Database) *SessionRepository {
	return &SessionRepository{database}
}

// Save сохраняет сессию, к которой привязан выданный токен
func (r *SessionRepository) Save(ctx context.Context, session *model.Session) error {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `INSERT INTO sessions (id, user_id, expire_at, revoked, user_agent, ip_address)
				VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.DB.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.ExpireAt,
		session.Revoked,
		session.UserAgent,
		session.IpAddress,
	)
	if err != nil {
		return util.LogError("[SessionRepo] ошибка вставки данных в БД", err)
	}

	return nil
}

// Revoke помечает сессию отозванной
// Повторный logout той же сессии возвращает ErrNotFound
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1 AND revoked = FALSE`, id)
	if err != nil {
		return util.LogError("[SessionRepo] не удалось отозвать сессию", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[SessionRepo] не удалось проверить, отозвана ли сессия", err)
	}
	if rowsAffected == 0 {
		return apperror.ErrNotFound
	}

	return nil
}

// FindByID ищет сессию в базе данных
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `SELECT id, user_id, expire_at, revoked, user_agent, ip_address, created_at FROM sessions WHERE id = $1`

	session := &model.Session{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpireAt,
		&session.Revoked,
		&session.UserAgent,
		&session.IpAddress,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[SessionRepo] ошибка при выполнении запроса", err)
	}

	return session, nil
}
