package service_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"

	"github.com/stretchr/testify/mock"
)

// ===== MOCKS =====

type MockDocumentRepository struct{ mock.Mock }

func (m *MockDocumentRepository) Create(ctx context.Context, document *model.Document) error {
	return m.Called(ctx, document).Error(0)
}

func (m *MockDocumentRepository) GetOwned(ctx context.Context, documentID string, ownerID string) (*model.Document, error) {
	args := m.Called(ctx, documentID, ownerID)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	args := m.Called(ctx, ownerID)
	if docs, ok := args.Get(0).([]model.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) DeleteWithShares(ctx context.Context, documentID string, ownerID string) error {
	return m.Called(ctx, documentID, ownerID).Error(0)
}

func (m *MockDocumentRepository) StorageKeyExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

type MockShareLinkRepository struct{ mock.Mock }

func (m *MockShareLinkRepository) GetByDocument(ctx context.Context, documentID string, ownerID string) (*model.ShareLink, error) {
	args := m.Called(ctx, documentID, ownerID)
	if link, ok := args.Get(0).(*model.ShareLink); ok {
		return link, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShareLinkRepository) GetOrCreate(ctx context.Context, link *model.ShareLink) (*model.ShareLink, error) {
	args := m.Called(ctx, link)
	if stored, ok := args.Get(0).(*model.ShareLink); ok {
		return stored, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShareLinkRepository) GetDocumentByShareID(ctx context.Context, shareID string) (*model.Document, error) {
	args := m.Called(ctx, shareID)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockShareCache struct{ mock.Mock }

func (m *MockShareCache) SetSharedDocument(ctx context.Context, shareID string, document *model.Document) error {
	return m.Called(ctx, shareID, document).Error(0)
}

func (m *MockShareCache) GetSharedDocument(ctx context.Context, shareID string) (*model.Document, error) {
	args := m.Called(ctx, shareID)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShareCache) DeleteSharedDocument(ctx context.Context, shareID string) error {
	return m.Called(ctx, shareID).Error(0)
}

type MockReconcileQueue struct{ mock.Mock }

func (m *MockReconcileQueue) Enqueue(ctx context.Context, candidate model.ReconcileCandidate) error {
	return m.Called(ctx, candidate).Error(0)
}

func (m *MockReconcileQueue) Dequeue(ctx context.Context, limit int) ([]model.ReconcileCandidate, error) {
	args := m.Called(ctx, limit)
	if candidates, ok := args.Get(0).([]model.ReconcileCandidate); ok {
		return candidates, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockBlobStore struct{ mock.Mock }

func (m *MockBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, body, size, contentType).Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) (*model.BlobObject, error) {
	args := m.Called(ctx, key)
	if object, ok := args.Get(0).(*model.BlobObject); ok {
		return object, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockBlobStore) PublicURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) ListKeys(ctx context.Context, prefix string) ([]model.BlobKey, error) {
	args := m.Called(ctx, prefix)
	if keys, ok := args.Get(0).([]model.BlobKey); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockLanguageDetector struct{ mock.Mock }

func (m *MockLanguageDetector) Detect(text string) string {
	return m.Called(text).String(0)
}

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTokenService struct{ mock.Mock }

func (m *MockTokenService) IssueToken(userID string) (string, *model.Session, error) {
	args := m.Called(userID)
	if session, ok := args.Get(1).(*model.Session); ok {
		return args.String(0), session, args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Save(ctx context.Context, session *model.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if session, ok := args.Get(0).(*model.Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// ===== IN-MEMORY =====

// memoryShareLinks : повторяет уникальность (user_id, document_id) таблицы share_links
type memoryShareLinks struct {
	mu        sync.Mutex
	byDoc     map[string]*model.ShareLink
	documents map[string]*model.Document
	creates   int
}

func newMemoryShareLinks(documents ...*model.Document) *memoryShareLinks {
	links := &memoryShareLinks{
		byDoc:     make(map[string]*model.ShareLink),
		documents: make(map[string]*model.Document),
	}
	for _, doc := range documents {
		links.documents[doc.ID] = doc
	}
	return links
}

func (r *memoryShareLinks) GetByDocument(_ context.Context, documentID string, ownerID string) (*model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.byDoc[ownerID+"/"+documentID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *link
	return &copied, nil
}

func (r *memoryShareLinks) GetOrCreate(_ context.Context, link *model.ShareLink) (*model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := link.OwnerID + "/" + link.DocumentID
	if stored, ok := r.byDoc[key]; ok {
		copied := *stored
		return &copied, nil
	}
	stored := *link
	r.byDoc[key] = &stored
	r.creates++
	copied := stored
	return &copied, nil
}

func (r *memoryShareLinks) GetDocumentByShareID(_ context.Context, shareID string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.byDoc {
		if link.ShareID == shareID {
			if doc, ok := r.documents[link.DocumentID]; ok {
				copied := *doc
				return &copied, nil
			}
		}
	}
	return nil, apperror.ErrNotFound
}

// memoryVault : метаданные документов и ссылок с каскадным удалением, как в postgres
type memoryVault struct {
	mu        sync.Mutex
	documents map[string]model.Document
	links     map[string]model.ShareLink
	// afterShareLookup : вызывается один раз после чтения документа по ссылке
	afterShareLookup func()
}

func newMemoryVault() *memoryVault {
	return &memoryVault{
		documents: make(map[string]model.Document),
		links:     make(map[string]model.ShareLink),
	}
}

func (r *memoryVault) Create(_ context.Context, document *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}
	r.documents[document.ID] = *document
	return nil
}

func (r *memoryVault) GetOwned(_ context.Context, documentID string, ownerID string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[documentID]
	if !ok || doc.OwnerID != ownerID {
		return nil, apperror.ErrNotFound
	}
	return &doc, nil
}

func (r *memoryVault) ListByOwner(_ context.Context, ownerID string) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]model.Document, 0)
	for _, doc := range r.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (r *memoryVault) DeleteWithShares(_ context.Context, documentID string, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[documentID]
	if !ok || doc.OwnerID != ownerID {
		return apperror.ErrNotFound
	}
	delete(r.documents, documentID)
	delete(r.links, ownerID+"/"+documentID)
	return nil
}

func (r *memoryVault) StorageKeyExists(_ context.Context, storageKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.documents {
		if doc.StorageKey == storageKey {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryVault) GetByDocument(_ context.Context, documentID string, ownerID string) (*model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[ownerID+"/"+documentID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &link, nil
}

func (r *memoryVault) GetOrCreate(_ context.Context, link *model.ShareLink) (*model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := link.OwnerID + "/" + link.DocumentID
	if stored, ok := r.links[key]; ok {
		return &stored, nil
	}
	r.links[key] = *link
	stored := *link
	return &stored, nil
}

func (r *memoryVault) GetDocumentByShareID(_ context.Context, shareID string) (*model.Document, error) {
	r.mu.Lock()
	var found *model.Document
	for _, link := range r.links {
		if link.ShareID != shareID {
			continue
		}
		if doc, ok := r.documents[link.DocumentID]; ok {
			found = &doc
		}
	}
	hook := r.afterShareLookup
	r.afterShareLookup = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if found == nil {
		return nil, apperror.ErrNotFound
	}
	return found, nil
}

type storedBlob struct {
	data        []byte
	contentType string
}

// memoryBlobs : хранилище объектов в памяти, удаление отсутствующего ключа не ошибка
type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string]storedBlob
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string]storedBlob)}
}

func (b *memoryBlobs) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = storedBlob{data: data, contentType: contentType}
	return nil
}

func (b *memoryBlobs) Get(_ context.Context, key string) (*model.BlobObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	object, ok := b.objects[key]
	if !ok {
		return nil, apperror.Wrap(apperror.ErrBlobNotFound, nil)
	}
	return blob(string(object.data), object.contentType), nil
}

func (b *memoryBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memoryBlobs) PublicURL(_ context.Context, key string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (b *memoryBlobs) ListKeys(_ context.Context, _ string) ([]model.BlobKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]model.BlobKey, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, model.BlobKey{Key: key})
	}
	return keys, nil
}

// memoryShareCache : кэш ссылок без TTL
type memoryShareCache struct {
	mu      sync.Mutex
	entries map[string]model.Document
}

func newMemoryShareCache() *memoryShareCache {
	return &memoryShareCache{entries: make(map[string]model.Document)}
}

func (c *memoryShareCache) SetSharedDocument(_ context.Context, shareID string, document *model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[shareID] = *document
	return nil
}

func (c *memoryShareCache) GetSharedDocument(_ context.Context, shareID string) (*model.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.entries[shareID]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (c *memoryShareCache) DeleteSharedDocument(_ context.Context, shareID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, shareID)
	return nil
}

func (c *memoryShareCache) cached(shareID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[shareID]
	return ok
}

func blob(content string, contentType string) *model.BlobObject {
	return &model.BlobObject{
		Body:          io.NopCloser(bytes.NewReader([]byte(content))),
		ContentType:   contentType,
		ContentLength: int64(len(content)),
	}
}
