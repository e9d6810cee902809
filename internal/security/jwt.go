package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"doc-vault-server/config"
	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	UserContextKey contextKey = "user"

	issuer = "doc-vault-server"
)

type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewJWTService(cfg *config.JWTConfig) *JWTService {
	ttl := cfg.AccessTokenTTL.Std()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{
		secretKey: []byte(cfg.SecretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// IssueToken : создаёт новую сессию и подписанный токен, ссылающийся на неё
// Сессию сохраняет вызывающий, заполнив UserAgent и IpAddress
func (service *JWTService) IssueToken(userID string) (string, *model.Session, error) {
	now := service.now()
	session := &model.Session{
		ID:       uuid.New().String(),
		UserID:   userID,
		ExpireAt: now.Add(service.ttl),
	}

	claims := Claims{
		UserID:    userID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpireAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	token, err := jwtToken.SignedString(service.secretKey)
	if err != nil {
		return "", nil, util.LogError("[JWTService] ошибка подписи токена", err)
	}

	return token, session, nil
}

func (service *JWTService) ValidateJWT(jwtTokenStr string) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return service.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(service.now))
	if err != nil {
		return nil, fmt.Errorf("невалидный токен: %w", err)
	}
	if !jwtToken.Valid || claims.UserID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("невалидный токен")
	}

	return claims, nil
}

type tokenValidator interface {
	ValidateJWT(token string) (*Claims, error)
}

type sessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// JWTMiddleware : пропускает запрос, если токен валиден и его сессия не отозвана
// Токен берётся из заголовка Authorization: Bearer, иначе из cookie
func JWTMiddleware(validator tokenValidator, sessions sessionFinder, cookieName string) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(handleAuthentication(validator, sessions, cookieName, next))
	}
}

func handleAuthentication(validator tokenValidator, sessions sessionFinder, cookieName string, next http.Handler) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		token := extractToken(request, cookieName)
		if token == "" {
			util.HandleError(writer, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := validator.ValidateJWT(token)
		if err != nil {
			log.Debug().Err(err).Msg("отклонён невалидный токен")
			util.HandleError(writer, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		session, err := sessions.FindByID(request.Context(), claims.SessionID)
		if err != nil {
			log.Debug().Err(err).Str("session_id", claims.SessionID).Msg("сессия не найдена")
			util.HandleError(writer, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		if session.Revoked || session.UserID != claims.UserID {
			log.Debug().Str("session_id", session.ID).Msg("сессия отозвана")
			util.HandleError(writer, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		req := request.WithContext(WithClaims(request.Context(), claims))
		next.ServeHTTP(writer, req)
	}
}

func extractToken(request *http.Request, cookieName string) string {
	authorizationHeader := request.Header.Get("Authorization")
	if strings.HasPrefix(authorizationHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authorizationHeader, "Bearer "))
	}

	if cookieName == "" {
		return ""
	}
	cookie, err := request.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, apperror.ErrUnauthorized
	}
	return claims, nil
}
