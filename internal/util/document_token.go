package util

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	StorageKeyPrefix = "documents/"
	maxExtLength     = 10
)

// GenerateShareID : токен публичной ссылки, uuid v4 из crypto/rand (122 случайных бита)
func GenerateShareID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", LogError("[util] ошибка генерации токена", err)
	}
	return id.String(), nil
}

// NewStorageKey : ключ объекта в хранилище, от пользователя берётся только расширение файла
func NewStorageKey(filename string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", LogError("[util] ошибка генерации ключа хранилища", err)
	}

	key := StorageKeyPrefix + id.String()
	if ext := sanitizeExt(filename); ext != "" {
		key += "." + ext
	}
	return key, nil
}

// sanitizeExt : латиница и цифры, не длиннее maxExtLength, иначе расширение отбрасывается
func sanitizeExt(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" || len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext {
		isDigit := r >= '0' && r <= '9'
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isDigit && !isLetter {
			return ""
		}
	}
	return strings.ToLower(ext)
}
