package handler

import (
	"net/http"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model/requestresponse"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/security"
	"doc-vault-server/internal/util"
)

type UserHandler struct {
	userService ports.UserService
	cookie      *SessionCookie
}

func NewUserHandler(userService ports.UserService, cookie *SessionCookie) *UserHandler {
	return &UserHandler{userService: userService, cookie: cookie}
}

// Register godoc
// @Summary Регистрация
// @Description Создаёт пользователя и сразу открывает сессию.
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Тело запроса"
// @Success 201 {object} requestresponse.RegisterResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректные данные или email уже занят"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /auth/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.userService.Register(r.Context(), req.Username, req.Email, req.Password, r.UserAgent(), remoteIP(r))
	if err != nil {
		handleServiceError(w, "[UserHandler] ошибка регистрации", err)
		return
	}

	h.cookie.Set(w, token)
	writeJSON(w, http.StatusCreated, requestresponse.RegisterResponse{Success: true, User: user, Token: token})
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Users
// @Produce json
// @Success 200 {object} requestresponse.UserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetUser(r.Context(), claims.UserID)
	if err != nil {
		handleServiceError(w, "[UserHandler] ошибка получения пользователя", err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.UserResponse{Success: true, User: user})
}
