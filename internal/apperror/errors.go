// Package apperror : классификация ошибок сервиса документов и их отображение в HTTP
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Ошибки, которые видит клиент
var (
	ErrInvalidInput               = errors.New("некорректные входные данные")
	ErrNotFoundOrUnauthorized     = errors.New("документ не найден")
	ErrShareLinkNotFound          = errors.New("ссылка не найдена")
	ErrStorageWriteFailed         = errors.New("не удалось сохранить файл в хранилище")
	ErrStorageDeleteFailed        = errors.New("не удалось удалить файл из хранилища")
	ErrMetadataWriteFailed        = errors.New("не удалось сохранить метаданные документа")
	ErrMetadataReadFailed         = errors.New("не удалось получить метаданные документа")
	ErrPartialDeleteInconsistency = errors.New("документ удалён из хранилища, но метаданные остались")
	ErrUpstreamFetchFailed        = errors.New("не удалось получить файл из хранилища")

	ErrUnauthorized       = errors.New("пользователь не авторизован")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrUserAlreadyExists  = errors.New("пользователь с таким email уже существует")
)

// Внутренние ошибки слоёв хранения, наружу не выходят
var (
	ErrNotFound     = errors.New("не найдено")
	ErrBlobNotFound = errors.New("объект не найден в хранилище")
)

type classified struct {
	kind  error
	cause error
}

func (e *classified) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.kind.Error(), e.cause)
}

func (e *classified) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Wrap : присваивает ошибке тип, сохраняя исходную причину в цепочке errors.Is
func Wrap(kind error, cause error) error {
	return &classified{kind: kind, cause: cause}
}

var statuses = []struct {
	kind   error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUserAlreadyExists, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrNotFoundOrUnauthorized, http.StatusNotFound},
	{ErrShareLinkNotFound, http.StatusNotFound},
	{ErrUpstreamFetchFailed, http.StatusBadGateway},
	{ErrStorageWriteFailed, http.StatusInternalServerError},
	{ErrStorageDeleteFailed, http.StatusInternalServerError},
	{ErrMetadataWriteFailed, http.StatusInternalServerError},
	{ErrMetadataReadFailed, http.StatusInternalServerError},
	{ErrPartialDeleteInconsistency, http.StatusInternalServerError},
}

// HTTPStatus : код ответа для ошибки, неизвестные ошибки дают 500
func HTTPStatus(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Message : стабильный текст для клиента без внутренних подробностей
func Message(err error) string {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.kind.Error()
		}
	}
	return "внутренняя ошибка сервера"
}
