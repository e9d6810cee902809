package ports

import (
	"context"
	"doc-vault-server/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type UserService interface {
	Register(ctx context.Context, username, email, password, userAgent, ipAddress string) (*model.User, string, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}
