package handler

import (
	"net/http"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model/requestresponse"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/security"
	"doc-vault-server/internal/util"

	"github.com/go-playground/validator/v10"
)

type AuthenticationHandler struct {
	authenticationService ports.AuthenticationService
	cookie                *SessionCookie
	validate              *validator.Validate
}

func NewAuthenticationHandler(authenticationService ports.AuthenticationService, cookie *SessionCookie) *AuthenticationHandler {
	return &AuthenticationHandler{
		authenticationService: authenticationService,
		cookie:                cookie,
		validate:              validator.New(),
	}
}

// Login godoc
// @Summary Вход по email и паролю
// @Description Проверяет пароль, открывает сессию и возвращает JWT. Токен также ставится в cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.LoginResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный email или пароль"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		util.HandleError(w, "email и пароль обязательны", http.StatusBadRequest)
		return
	}

	user, token, err := h.authenticationService.Login(r.Context(), req.Email, req.Password, r.UserAgent(), remoteIP(r))
	if err != nil {
		handleServiceError(w, "[AuthenticationHandler] ошибка входа", err)
		return
	}

	h.cookie.Set(w, token)
	writeJSON(w, http.StatusOK, requestresponse.LoginResponse{
		Success: true,
		Message: "Вход выполнен",
		User:    user,
		Token:   token,
	})
}

// Logout godoc
// @Summary Выход
// @Description Отзывает текущую сессию, после чего её токен больше не принимается.
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.LogoutResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	if err := h.authenticationService.Logout(r.Context(), claims.SessionID); err != nil {
		handleServiceError(w, "[AuthenticationHandler] ошибка выхода", err)
		return
	}

	h.cookie.Clear(w)
	writeJSON(w, http.StatusOK, requestresponse.LogoutResponse{Success: true, Message: "Выход выполнен"})
}
