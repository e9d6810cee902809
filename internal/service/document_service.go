package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/metrics"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const languageSampleSize = 8 << 10

type DocumentService struct {
	documentRepository ports.DocumentRepository
	shareRepository    ports.ShareLinkRepository
	shareCache         ports.ShareCache
	reconcileQueue     ports.ReconcileQueue
	storage            ports.BlobStore
	proxy              *StreamProxy
	detector           ports.LanguageDetector
	capMB              float64
	baseURL            string
}

func NewDocumentService(
	documentRepository ports.DocumentRepository,
	shareRepository ports.ShareLinkRepository,
	shareCache ports.ShareCache,
	reconcileQueue ports.ReconcileQueue,
	storage ports.BlobStore,
	proxy *StreamProxy,
	detector ports.LanguageDetector,
	capMB float64,
	baseURL string,
) *DocumentService {
	return &DocumentService{
		documentRepository: documentRepository,
		shareRepository:    shareRepository,
		shareCache:         shareCache,
		reconcileQueue:     reconcileQueue,
		storage:            storage,
		proxy:              proxy,
		detector:           detector,
		capMB:              capMB,
		baseURL:            strings.TrimRight(baseURL, "/"),
	}
}

// Upload : сначала объект в хранилище, потом строка в БД
// Если строку записать не удалось, объект остаётся сиротой и уходит в очередь сверки
func (s *DocumentService) Upload(ctx context.Context, ownerID string, input model.UploadInput) (*model.Document, error) {
	title := strings.TrimSpace(input.Filename)
	if ownerID == "" || title == "" || input.Body == nil || input.Size <= 0 {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, nil)
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		mimeType = defaultContentType
	}

	language, err := s.resolveLanguage(input, mimeType)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrStorageWriteFailed, err)
	}

	storageKey, err := util.NewStorageKey(title)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrStorageWriteFailed, err)
	}

	if err := s.storage.Put(ctx, storageKey, input.Body, input.Size, mimeType); err != nil {
		return nil, apperror.Wrap(apperror.ErrStorageWriteFailed, err)
	}

	document := &model.Document{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		Title:      title,
		StorageKey: storageKey,
		MimeType:   mimeType,
		Language:   language,
		SizeBytes:  input.Size,
	}

	if err := s.documentRepository.Create(ctx, document); err != nil {
		log.Error().Err(err).
			Str("storage_key", storageKey).
			Str("owner_id", ownerID).
			Msg("[DocumentService] объект записан, метаданные нет: кандидат на сверку")
		s.enqueueCandidate(ctx, model.ReconcileCandidate{
			Kind:       model.ReconcileOrphanBlob,
			StorageKey: storageKey,
			DocumentID: document.ID,
			OwnerID:    ownerID,
			Reason:     err.Error(),
		})
		return nil, apperror.Wrap(apperror.ErrMetadataWriteFailed, err)
	}

	log.Info().Str("document_id", document.ID).Str("owner_id", ownerID).Int64("size", document.SizeBytes).Msg("[DocumentService] документ загружен")
	return document, nil
}

// resolveLanguage : явный тег важнее, иначе для текстовых файлов язык определяется по началу содержимого
func (s *DocumentService) resolveLanguage(input model.UploadInput, mimeType string) (string, error) {
	if tag := strings.ToLower(strings.TrimSpace(input.Language)); tag != "" {
		return tag, nil
	}
	if s.detector == nil || !strings.HasPrefix(mimeType, "text/") {
		return UnknownLanguage, nil
	}

	seeker, ok := input.Body.(io.ReadSeeker)
	if !ok {
		return UnknownLanguage, nil
	}

	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return UnknownLanguage, nil
	}
	sample, readErr := io.ReadAll(io.LimitReader(seeker, languageSampleSize))
	if _, err := seeker.Seek(start, io.SeekStart); err != nil {
		return "", util.LogError("[DocumentService] не удалось вернуться к началу файла", err)
	}
	if readErr != nil {
		return UnknownLanguage, nil
	}

	return s.detector.Detect(string(sample)), nil
}

// List : документы владельца, новые первыми, и занятое ими место
func (s *DocumentService) List(ctx context.Context, ownerID string) (*model.DocumentList, error) {
	if ownerID == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, nil)
	}

	documents, err := s.documentRepository.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrMetadataReadFailed, err)
	}

	views := make([]model.DocumentView, 0, len(documents))
	for _, document := range documents {
		publicURL, err := s.storage.PublicURL(ctx, document.StorageKey)
		if err != nil {
			log.Warn().Err(err).Str("document_id", document.ID).Msg("[DocumentService] нет публичной ссылки для превью")
			publicURL = ""
		}
		views = append(views, model.DocumentView{
			ID:        document.ID,
			Title:     document.Title,
			MimeType:  document.MimeType,
			Language:  document.Language,
			SizeBytes: document.SizeBytes,
			CreatedAt: document.CreatedAt,
			ViewURL:   "/documents/" + document.ID + "/view",
			PublicURL: publicURL,
		})
	}

	return &model.DocumentList{
		Documents: views,
		Storage:   CalculateUsage(documents, s.capMB),
	}, nil
}

func (s *DocumentService) View(ctx context.Context, ownerID string, documentID string) (*model.DocumentStream, error) {
	document, err := s.resolveOwned(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	return s.proxy.Stream(ctx, document.StorageKey, document.Title)
}

// Delete : объект удаляется первым, строка остаётся, если хранилище вернуло ошибку
// Если объект удалён, а строку удалить не удалось даже со второй попытки, возвращается ErrPartialDeleteInconsistency
func (s *DocumentService) Delete(ctx context.Context, ownerID string, documentID string) error {
	document, err := s.resolveOwned(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	shareID := s.findShareID(ctx, document)
	s.invalidateShare(ctx, shareID)

	if err := s.storage.Delete(ctx, document.StorageKey); err != nil && !errors.Is(err, apperror.ErrBlobNotFound) {
		return apperror.Wrap(apperror.ErrStorageDeleteFailed, err)
	}

	if err := s.deleteMetadata(ctx, document); err != nil {
		log.Error().Err(err).
			Str("document_id", document.ID).
			Str("storage_key", document.StorageKey).
			Msg("[DocumentService] объект удалён, метаданные нет: кандидат на сверку")
		s.enqueueCandidate(ctx, model.ReconcileCandidate{
			Kind:       model.ReconcileStaleMetadata,
			StorageKey: document.StorageKey,
			DocumentID: document.ID,
			OwnerID:    document.OwnerID,
			Reason:     err.Error(),
		})
		return apperror.Wrap(apperror.ErrPartialDeleteInconsistency, err)
	}

	// ссылка могла снова попасть в кэш, пока шло удаление
	s.invalidateShare(ctx, shareID)

	log.Info().Str("document_id", document.ID).Str("owner_id", ownerID).Msg("[DocumentService] документ удалён")
	return nil
}

// deleteMetadata : одна повторная попытка, уже удалённая строка считается успехом
func (s *DocumentService) deleteMetadata(ctx context.Context, document *model.Document) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.documentRepository.DeleteWithShares(ctx, document.ID, document.OwnerID)
		if err == nil || errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Str("document_id", document.ID).Msg("[DocumentService] ошибка удаления метаданных")
	}
	return err
}

// CreateShareLink : повторный вызов возвращает ту же ссылку
func (s *DocumentService) CreateShareLink(ctx context.Context, ownerID string, documentID string) (string, error) {
	document, err := s.resolveOwned(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}

	shareID, err := util.GenerateShareID()
	if err != nil {
		return "", apperror.Wrap(apperror.ErrMetadataWriteFailed, err)
	}

	link, err := s.shareRepository.GetOrCreate(ctx, &model.ShareLink{
		ShareID:    shareID,
		DocumentID: document.ID,
		OwnerID:    document.OwnerID,
	})
	if err != nil {
		return "", apperror.Wrap(apperror.ErrMetadataWriteFailed, err)
	}

	return s.shareURL(link.ShareID), nil
}

// ResolveShareLink : публичный путь без проверки владельца
// Токен открывает ровно один документ, на который ссылается
func (s *DocumentService) ResolveShareLink(ctx context.Context, shareID string) (*model.DocumentStream, error) {
	if _, err := uuid.Parse(shareID); err != nil {
		return nil, apperror.Wrap(apperror.ErrShareLinkNotFound, err)
	}

	document := s.cachedShare(ctx, shareID)
	if document == nil {
		var err error
		document, err = s.shareRepository.GetDocumentByShareID(ctx, shareID)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Wrap(apperror.ErrShareLinkNotFound, err)
		}
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrMetadataReadFailed, err)
		}

		if s.shareCache != nil {
			if err := s.shareCache.SetSharedDocument(ctx, shareID, document); err != nil {
				log.Warn().Err(err).Msg("[DocumentService] не удалось закэшировать ссылку")
			}
		}
	}

	stream, err := s.proxy.Stream(ctx, document.StorageKey, document.Title)
	if err != nil && errors.Is(err, apperror.ErrBlobNotFound) {
		return nil, s.staleShareError(ctx, shareID, err)
	}
	return stream, err
}

// staleShareError : объекта нет в хранилище, значит запись в кэше могла пережить удаление документа.
// Кэш сбрасывается, а строка перечитывается из БД
func (s *DocumentService) staleShareError(ctx context.Context, shareID string, fetchErr error) error {
	s.invalidateShare(ctx, shareID)

	_, err := s.shareRepository.GetDocumentByShareID(ctx, shareID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Wrap(apperror.ErrShareLinkNotFound, err)
	}
	if err != nil {
		log.Warn().Err(err).Str("share_id", shareID).Msg("[DocumentService] не удалось перепроверить ссылку")
	}
	return fetchErr
}

// resolveOwned : отсутствующий и чужой документ дают одну и ту же ошибку
func (s *DocumentService) resolveOwned(ctx context.Context, ownerID string, documentID string) (*model.Document, error) {
	if ownerID == "" {
		return nil, apperror.Wrap(apperror.ErrNotFoundOrUnauthorized, nil)
	}
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, apperror.Wrap(apperror.ErrNotFoundOrUnauthorized, nil)
	}

	document, err := s.documentRepository.GetOwned(ctx, documentID, ownerID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Wrap(apperror.ErrNotFoundOrUnauthorized, err)
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrMetadataReadFailed, err)
	}
	return document, nil
}

func (s *DocumentService) cachedShare(ctx context.Context, shareID string) *model.Document {
	if s.shareCache == nil {
		return nil
	}
	document, err := s.shareCache.GetSharedDocument(ctx, shareID)
	if err != nil {
		log.Warn().Err(err).Msg("[DocumentService] кэш ссылок недоступен, читаем из БД")
		return nil
	}
	return document
}

func (s *DocumentService) findShareID(ctx context.Context, document *model.Document) string {
	link, err := s.shareRepository.GetByDocument(ctx, document.ID, document.OwnerID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			log.Warn().Err(err).Str("document_id", document.ID).Msg("[DocumentService] не удалось получить ссылку документа")
		}
		return ""
	}
	return link.ShareID
}

func (s *DocumentService) invalidateShare(ctx context.Context, shareID string) {
	if shareID == "" || s.shareCache == nil {
		return
	}
	if err := s.shareCache.DeleteSharedDocument(context.WithoutCancel(ctx), shareID); err != nil {
		log.Warn().Err(err).Str("share_id", shareID).Msg("[DocumentService] не удалось сбросить кэш ссылки")
	}
}

func (s *DocumentService) enqueueCandidate(ctx context.Context, candidate model.ReconcileCandidate) {
	if s.reconcileQueue == nil {
		return
	}
	if err := s.reconcileQueue.Enqueue(context.WithoutCancel(ctx), candidate); err != nil {
		log.Error().Err(err).Str("storage_key", candidate.StorageKey).Msg("[DocumentService] не удалось поставить кандидата в очередь сверки")
		return
	}
	metrics.ObserveReconcile(candidate.Kind, "enqueued")
}

func (s *DocumentService) shareURL(shareID string) string {
	return s.baseURL + "/documents/share/" + shareID
}
