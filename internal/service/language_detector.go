package service

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

const UnknownLanguage = "unknown"

type LanguageDetector struct{}

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{}
}

// Detect : ISO 639-1 код языка или "unknown", если определить не удалось
func (d *LanguageDetector) Detect(text string) string {
	// первые байты файла могут обрываться посреди символа
	text = strings.ToValidUTF8(text, "")
	if strings.TrimSpace(text) == "" {
		return UnknownLanguage
	}

	// близкие языки одной письменности без уверенности не различаются
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return UnknownLanguage
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return UnknownLanguage
	}
	return code
}
