package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentRowColumns = []string{"id", "user_id", "title", "storage_key", "mime_type", "language", "size", "created_at"}

func TestDocumentRepository_Create(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := &model.Document{
		ID:         "doc-1",
		OwnerID:    "user-1",
		Title:      "invoice.pdf",
		StorageKey: "documents/k.pdf",
		MimeType:   "application/pdf",
		Language:   "en",
		SizeBytes:  2097152,
	}

	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs("doc-1", "user-1", "invoice.pdf", "documents/k.pdf", "application/pdf", "en", int64(2097152)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.Create(context.Background(), doc))
	assert.Equal(t, created, doc.CreatedAt)
}

func TestDocumentRepository_Create_Error(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`INSERT INTO documents`).WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), &model.Document{ID: "doc-1"})
	assert.Error(t, err)
}

func TestDocumentRepository_GetOwned(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "найден",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM documents WHERE id = \$1 AND user_id = \$2`).
					WithArgs("doc-1", "user-1").
					WillReturnRows(sqlmock.NewRows(documentRowColumns).
						AddRow("doc-1", "user-1", "a.pdf", "documents/a.pdf", "application/pdf", "en", 10, time.Now()))
			},
		},
		{
			name: "чужой или отсутствующий",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM documents`).
					WithArgs("doc-1", "user-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: apperror.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDatabase(t)
			tt.setup(mock)

			doc, err := NewDocumentRepository(db).GetOwned(context.Background(), "doc-1", "user-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "documents/a.pdf", doc.StorageKey)
			assert.Equal(t, int64(10), doc.SizeBytes)
		})
	}
}

func TestDocumentRepository_ListByOwner(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM documents\s+WHERE user_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow("doc-2", "user-1", "b.txt", "documents/b.txt", "text/plain", "ru", 5, now).
			AddRow("doc-1", "user-1", "a.pdf", "documents/a.pdf", "application/pdf", "en", 10, now.Add(-time.Hour)))

	docs, err := repo.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-2", docs[0].ID)
	assert.Equal(t, "doc-1", docs[1].ID)
}

func TestDocumentRepository_ListByOwner_Empty(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT .* FROM documents`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	docs, err := repo.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestDocumentRepository_DeleteWithShares(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM share_links WHERE document_id = \$1 AND user_id = \$2`).
		WithArgs("doc-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM documents WHERE id = \$1 AND user_id = \$2`).
		WithArgs("doc-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteWithShares(context.Background(), "doc-1", "user-1"))
}

func TestDocumentRepository_DeleteWithShares_NotFoundRollsBack(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM share_links`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteWithShares(context.Background(), "doc-1", "user-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDocumentRepository_DeleteWithShares_ErrorRollsBack(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM share_links`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM documents`).WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	err := repo.DeleteWithShares(context.Background(), "doc-1", "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
}

func TestDocumentRepository_StorageKeyExists(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("documents/a.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.StorageKeyExists(context.Background(), "documents/a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}
