package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shareColumns = []string{"share_id", "document_id", "user_id", "created_at"}

func TestShareLinkRepository_GetOrCreate_ReturnsExisting(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewShareLinkRepository(db)

	mock.ExpectQuery(`SELECT share_id, document_id, user_id, created_at\s+FROM share_links`).
		WithArgs("doc-1", "user-1").
		WillReturnRows(sqlmock.NewRows(shareColumns).AddRow("existing", "doc-1", "user-1", time.Now()))

	link, err := repo.GetOrCreate(context.Background(), &model.ShareLink{ShareID: "new", DocumentID: "doc-1", OwnerID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "existing", link.ShareID)
}

func TestShareLinkRepository_GetOrCreate_Inserts(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewShareLinkRepository(db)

	mock.ExpectQuery(`FROM share_links`).
		WithArgs("doc-1", "user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO share_links .* ON CONFLICT \(user_id, document_id\) DO NOTHING`).
		WithArgs("new", "user-1", "doc-1").
		WillReturnRows(sqlmock.NewRows(shareColumns).AddRow("new", "doc-1", "user-1", time.Now()))

	link, err := repo.GetOrCreate(context.Background(), &model.ShareLink{ShareID: "new", DocumentID: "doc-1", OwnerID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "new", link.ShareID)
}

func TestShareLinkRepository_GetOrCreate_ConflictRereads(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewShareLinkRepository(db)

	mock.ExpectQuery(`FROM share_links`).
		WithArgs("doc-1", "user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO share_links`).
		WithArgs("loser", "user-1", "doc-1").
		WillReturnRows(sqlmock.NewRows(shareColumns))
	mock.ExpectQuery(`FROM share_links`).
		WithArgs("doc-1", "user-1").
		WillReturnRows(sqlmock.NewRows(shareColumns).AddRow("winner", "doc-1", "user-1", time.Now()))

	link, err := repo.GetOrCreate(context.Background(), &model.ShareLink{ShareID: "loser", DocumentID: "doc-1", OwnerID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "winner", link.ShareID)
}

func TestShareLinkRepository_GetByDocument_NotFound(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectQuery(`FROM share_links`).WillReturnError(sql.ErrNoRows)

	_, err := NewShareLinkRepository(db).GetByDocument(context.Background(), "doc-1", "user-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestShareLinkRepository_GetDocumentByShareID(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewShareLinkRepository(db)

	mock.ExpectQuery(`FROM share_links AS s\s+JOIN documents AS d`).
		WithArgs("share-1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow("doc-1", "user-1", "a.pdf", "documents/a.pdf", "application/pdf", "en", 10, time.Now()))

	doc, err := repo.GetDocumentByShareID(context.Background(), "share-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)

	mock.ExpectQuery(`FROM share_links AS s`).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetDocumentByShareID(context.Background(), "unknown")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
