package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"doc-vault-server/config"
	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/util"

	"github.com/rs/zerolog/log"
)

// writeJSON : ответ с кодом и телом в JSON
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("[Handler] ошибка кодирования ответа")
	}
}

// handleServiceError : код и текст ответа определяются типом ошибки, причина остаётся в логе
func handleServiceError(w http.ResponseWriter, source string, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg(source)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(source)
	}
	util.HandleError(w, apperror.Message(err), status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(target); err != nil {
		util.HandleError(w, "некорректный JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionCookie : cookie с JWT для браузерных клиентов
type SessionCookie struct {
	name   string
	secure bool
	ttl    time.Duration
}

func NewSessionCookie(cfg *config.JWTConfig) *SessionCookie {
	name := cfg.CookieName
	if name == "" {
		name = "token"
	}
	return &SessionCookie{name: name, secure: cfg.CookieSecure, ttl: cfg.AccessTokenTTL.Std()}
}

func (c *SessionCookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
