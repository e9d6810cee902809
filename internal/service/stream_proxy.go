package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/ports"
)

// StreamProxy : отдаёт содержимое объекта через сервер, адрес хранилища клиенту не передаётся
type StreamProxy struct {
	store        ports.BlobStore
	fetchTimeout time.Duration
}

func NewStreamProxy(store ports.BlobStore, fetchTimeout time.Duration) *StreamProxy {
	return &StreamProxy{store: store, fetchTimeout: fetchTimeout}
}

// Stream : fetchTimeout ограничивает ожидание заголовков от хранилища
// После этого тело живёт, пока жив ctx запроса, и закрытие тела отменяет чтение из хранилища
func (p *StreamProxy) Stream(ctx context.Context, storageKey string, downloadName string) (*model.DocumentStream, error) {
	fetchCtx, cancel := context.WithCancel(ctx)

	var timer *time.Timer
	if p.fetchTimeout > 0 {
		timer = time.AfterFunc(p.fetchTimeout, cancel)
	}

	object, err := p.store.Get(fetchCtx, storageKey)
	if timer != nil && !timer.Stop() {
		if err == nil {
			_ = object.Body.Close()
		}
		cancel()
		return nil, apperror.Wrap(apperror.ErrUpstreamFetchFailed, context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, apperror.Wrap(apperror.ErrUpstreamFetchFailed, err)
	}

	contentType := object.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	contentLength := object.ContentLength
	if contentLength < 0 {
		contentLength = -1
	}

	return &model.DocumentStream{
		ContentType:        contentType,
		ContentLength:      contentLength,
		ContentDisposition: InlineDisposition(downloadName),
		Body:               &cancelOnClose{ReadCloser: object.Body, cancel: cancel},
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.cancel)
	return err
}

// InlineDisposition : inline; filename="<имя в percent-encoding>"
func InlineDisposition(name string) string {
	return `inline; filename="` + EncodeURIComponent(name) + `"`
}

const upperHex = "0123456789ABCDEF"

// EncodeURIComponent : percent-encoding UTF-8 байтов, как encodeURIComponent в браузере
// Не кодируются только латиница, цифры и -_.!~*'()
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
