package ports

import (
	"context"
	"doc-vault-server/internal/model"
)

type SessionRepository interface {
	Save(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Revoke(ctx context.Context, id string) error
}

// TokenService : выпускает JWT, привязанный к новой сессии
type TokenService interface {
	IssueToken(userID string) (string, *model.Session, error)
}
