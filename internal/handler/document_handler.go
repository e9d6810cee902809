package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/model/requestresponse"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/security"
	"doc-vault-server/internal/util"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	multipartMemory = 8 << 20
	multipartSlack  = 1 << 20
	streamBuffer    = 32 << 10
)

type DocumentHandler struct {
	documentService ports.DocumentService
	maxUploadBytes  int64
}

func NewDocumentHandler(documentService ports.DocumentService, maxUploadMB int64) *DocumentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &DocumentHandler{documentService: documentService, maxUploadBytes: maxUploadMB << 20}
}

// Upload godoc
// @Summary Загрузка документа
// @Description Принимает файл в multipart/form-data, сохраняет его в хранилище и записывает метаданные.
// Язык можно передать явно, иначе для текстовых файлов он определяется автоматически.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Файл документа"
// @Param language formData string false "Тег языка, например en"
// @Success 201 {object} requestresponse.UploadDocumentResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Файл не передан или пустой"
// @Failure 401 {object} requestresponse.ErrorResponse "Пользователь не авторизован"
// @Failure 413 {object} requestresponse.ErrorResponse "Файл слишком большой"
// @Failure 500 {object} requestresponse.ErrorResponse "Ошибка хранилища или БД"
// @Security BearerAuth
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.HandleError(w, "файл превышает допустимый размер", http.StatusRequestEntityTooLarge)
			return
		}
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn().Err(err).Msg("[DocumentHandler] не удалось удалить временные файлы формы")
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		util.HandleError(w, "файл не найден в запросе", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		util.HandleError(w, "файл превышает допустимый размер", http.StatusRequestEntityTooLarge)
		return
	}

	document, err := h.documentService.Upload(r.Context(), claims.UserID, model.UploadInput{
		Filename: header.Filename,
		MimeType: detectMimeType(file, header),
		Body:     file,
		Size:     header.Size,
		Language: r.FormValue("language"),
	})
	if err != nil {
		handleServiceError(w, "[DocumentHandler] ошибка загрузки документа", err)
		return
	}

	writeJSON(w, http.StatusCreated, requestresponse.UploadDocumentResponse{
		Success:  true,
		Message:  "Документ загружен",
		Document: document,
	})
}

// detectMimeType : тип из заголовка части, а если клиент его не указал, по содержимому
func detectMimeType(file multipart.File, header *multipart.FileHeader) string {
	declared := strings.TrimSpace(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	detected, err := mimetype.DetectReader(file)
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil || err != nil {
		return declared
	}
	return detected.String()
}

// List godoc
// @Summary Список документов
// @Description Документы текущего пользователя, новые первыми, и сводка по занятому месту.
// @Tags Documents
// @Produce json
// @Success 200 {object} requestresponse.ListDocumentsResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	list, err := h.documentService.List(r.Context(), claims.UserID)
	if err != nil {
		handleServiceError(w, "[DocumentHandler] ошибка получения списка документов", err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.ListDocumentsResponse{
		Documents: list.Documents,
		Storage:   list.Storage,
	})
}

// View godoc
// @Summary Просмотр документа
// @Description Отдаёт содержимое документа потоком через сервер. Чужой и отсутствующий документ неразличимы.
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "ID документа"
// @Success 200 {file} file
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 502 {object} requestresponse.ErrorResponse
// @Security BearerAuth
// @Router /documents/{id}/view [get]
func (h *DocumentHandler) View(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	stream, err := h.documentService.View(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, "[DocumentHandler] ошибка просмотра документа", err)
		return
	}

	writeStream(w, stream)
}

// Delete godoc
// @Summary Удаление документа
// @Description Удаляет файл из хранилища, затем метаданные и публичные ссылки.
// @Tags Documents
// @Produce json
// @Param id path string true "ID документа"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	if err := h.documentService.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, "[DocumentHandler] ошибка удаления документа", err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SuccessResponse{Success: true, Message: "Документ удалён"})
}

// CreateShare godoc
// @Summary Публичная ссылка на документ
// @Description Создаёт ссылку или возвращает уже существующую, повторные вызовы дают тот же адрес.
// @Tags Documents
// @Produce json
// @Param id path string true "ID документа"
// @Success 200 {object} requestresponse.ShareDocumentResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security BearerAuth
// @Router /documents/{id}/share [post]
func (h *DocumentHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, apperror.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	shareURL, err := h.documentService.CreateShareLink(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, "[DocumentHandler] ошибка создания ссылки", err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.ShareDocumentResponse{Success: true, ShareURL: shareURL})
}

// ResolveShare godoc
// @Summary Документ по публичной ссылке
// @Description Отдаёт содержимое документа без авторизации. Частота запросов ограничена по IP.
// @Tags Documents
// @Produce octet-stream
// @Param shareId path string true "Токен ссылки"
// @Success 200 {file} file
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 502 {object} requestresponse.ErrorResponse
// @Router /documents/share/{shareId} [get]
func (h *DocumentHandler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	stream, err := h.documentService.ResolveShareLink(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		handleServiceError(w, "[DocumentHandler] ошибка открытия ссылки", err)
		return
	}

	writeStream(w, stream)
}

// writeStream : заголовки уходят до тела, поэтому ошибка чтения посреди файла только логируется
func writeStream(w http.ResponseWriter, stream *model.DocumentStream) {
	defer stream.Body.Close()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Content-Disposition", stream.ContentDisposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-store")
	if stream.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, streamBuffer)
	written, err := io.CopyBuffer(w, stream.Body, buf)
	if err != nil {
		log.Warn().Err(err).Int64("written", written).Msg("[DocumentHandler] поток документа прерван")
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
