package service

import (
	"context"
	"errors"
	"strings"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/security"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type UserService struct {
	userRepository    ports.UserRepository
	tokenService      ports.TokenService
	sessionRepository ports.SessionRepository
	validate          *validator.Validate
}

func NewUserService(
	userRepository ports.UserRepository,
	tokenService ports.TokenService,
	sessionRepository ports.SessionRepository,
) *UserService {
	return &UserService{
		userRepository:    userRepository,
		tokenService:      tokenService,
		sessionRepository: sessionRepository,
		validate:          validator.New(),
	}
}

type registration struct {
	Username string `validate:"required,min=3,max=64"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// Register : создаёт пользователя и сразу открывает ему сессию
func (s *UserService) Register(ctx context.Context, username, email, password, userAgent, ipAddress string) (*model.User, string, error) {
	input := registration{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, "", apperror.Wrap(apperror.ErrInvalidInput, err)
	}

	existing, err := s.userRepository.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, "", apperror.Wrap(apperror.ErrMetadataReadFailed, err)
	}
	if existing != nil {
		return nil, "", apperror.Wrap(apperror.ErrUserAlreadyExists, nil)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, "", apperror.Wrap(apperror.ErrInvalidInput, err)
	}

	created, err := s.userRepository.CreateUser(ctx, &model.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, apperror.ErrUserAlreadyExists) {
		return nil, "", err
	}
	if err != nil {
		return nil, "", apperror.Wrap(apperror.ErrMetadataWriteFailed, err)
	}

	token, err := openSession(ctx, s.tokenService, s.sessionRepository, created.ID, userAgent, ipAddress)
	if err != nil {
		return nil, "", err
	}

	log.Info().Str("user_id", created.ID).Msg("[UserService] пользователь зарегистрирован")
	return created, token, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.FindByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Wrap(apperror.ErrUnauthorized, err)
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrMetadataReadFailed, err)
	}
	return user, nil
}

// openSession : выпускает токен и сохраняет сессию, без сохранённой сессии токен не пройдёт middleware
func openSession(ctx context.Context, tokens ports.TokenService, sessions ports.SessionRepository, userID, userAgent, ipAddress string) (string, error) {
	token, session, err := tokens.IssueToken(userID)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrUnauthorized, err)
	}

	session.UserAgent = userAgent
	session.IpAddress = ipAddress

	if err := sessions.Save(ctx, session); err != nil {
		return "", apperror.Wrap(apperror.ErrMetadataWriteFailed, err)
	}
	return token, nil
}
