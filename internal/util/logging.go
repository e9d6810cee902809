package util

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"doc-vault-server/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var initOnce sync.Once

// InitLogger : настраивает глобальный zerolog логгер, повторные вызовы игнорируются
func InitLogger(cfg config.LogConfig) {
	initOnce.Do(func() {
		log.Logger = NewLogger(cfg, os.Stderr)
	})
}

func NewLogger(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.Pretty {
		out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = out
			w.TimeFormat = time.Kitchen
		})
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// LogError : пишет ошибку в лог и возвращает её обёрнутой с тем же сообщением
func LogError(message string, err error) error {
	log.Error().Err(err).Msg(message)
	return fmt.Errorf("%s: %w", message, err)
}

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{
		Success: false,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Error().Err(err).Msg("ошибка записи ответа с ошибкой")
	}
}
