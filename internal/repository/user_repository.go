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
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : сохраняет нового пользователя, занятый email даёт ErrUserAlreadyExists
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	query := `
	INSERT INTO users (id, username, email, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING id, username, email, created_at
	`

	createdUser := &model.User{}
	err := r.DB.QueryRowxContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash).
		Scan(&createdUser.ID, &createdUser.Username, &createdUser.Email, &createdUser.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nil, apperror.ErrUserAlreadyExists
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] ошибка вставки данных в БД", err)
	}

	return createdUser, nil
}

// FindByID : ищет пользователя по id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

// FindByEmail : ищет пользователя по email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	ctx, cancel := r.WithQueryTimeout(ctx)
	defer cancel()

	var user model.User
	err := sqlx.GetContext(ctx, r.DB, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}
