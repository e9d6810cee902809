package requestresponse

import "doc-vault-server/internal/model"

// LoginRequest : тело запроса на аутентификацию
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"P@ssw0rd123"`
}

// LoginResponse : ответ на успешную аутентификацию, токен также ставится в cookie
type LoginResponse struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message" example:"Вход выполнен"`
	User    *model.User `json:"user"`
	Token   string      `json:"token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
}

// LogoutResponse : ответ на завершение сессии
type LogoutResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Выход выполнен"`
}
