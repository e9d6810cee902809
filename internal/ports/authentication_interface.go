package ports

import (
	"context"
	"doc-vault-server/internal/model"
)

type AuthenticationService interface {
	Login(ctx context.Context, email, password, userAgent, ipAddress string) (*model.User, string, error)
	Logout(ctx context.Context, sessionID string) error
}
