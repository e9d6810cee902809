package requestresponse

import "doc-vault-server/internal/model"

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64" example:"alice"`
	Email    string `json:"email" validate:"required,email" example:"alice@example.com"`
	Password string `json:"password" validate:"required,min=8" example:"P@ssw0rd!"`
}

// RegisterResponse : успешный ответ
type RegisterResponse struct {
	Success bool        `json:"success" example:"true"`
	User    *model.User `json:"user"`
	Token   string      `json:"token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"документ не найден"`
}

// UserResponse : данные текущего пользователя
type UserResponse struct {
	Success bool        `json:"success" example:"true"`
	User    *model.User `json:"user"`
}
