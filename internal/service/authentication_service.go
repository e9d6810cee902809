package service

import (
	"context"
	"errors"
	"strings"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/security"

	"github.com/rs/zerolog/log"
)

type AuthenticationService struct {
	userRepository    ports.UserRepository
	tokenService      ports.TokenService
	sessionRepository ports.SessionRepository
}

func NewAuthenticationService(
	userRepository ports.UserRepository,
	tokenService ports.TokenService,
	sessionRepository ports.SessionRepository,
) *AuthenticationService {
	return &AuthenticationService{
		userRepository:    userRepository,
		tokenService:      tokenService,
		sessionRepository: sessionRepository,
	}
}

// Login : неизвестный email и неверный пароль неразличимы для клиента
func (s *AuthenticationService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apperror.Wrap(apperror.ErrInvalidCredentials, nil)
	}

	user, err := s.userRepository.FindByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, "", apperror.Wrap(apperror.ErrInvalidCredentials, err)
	}
	if err != nil {
		return nil, "", apperror.Wrap(apperror.ErrMetadataReadFailed, err)
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		log.Warn().Str("user_id", user.ID).Msg("[AuthenticationService] неверный пароль")
		return nil, "", apperror.Wrap(apperror.ErrInvalidCredentials, nil)
	}

	token, err := openSession(ctx, s.tokenService, s.sessionRepository, user.ID, userAgent, ipAddress)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout : отзывает сессию, повторный выход не считается ошибкой
func (s *AuthenticationService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperror.Wrap(apperror.ErrUnauthorized, nil)
	}

	err := s.sessionRepository.Revoke(ctx, sessionID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return apperror.Wrap(apperror.ErrMetadataWriteFailed, err)
	}
	return nil
}
