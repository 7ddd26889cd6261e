package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physhub/physhub/storage"
)

func TestSubmitResourceMapsEducationLevel(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewResourceService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectExec("INSERT INTO `resources`").WillReturnResult(sqlmock.NewResult(3, 1))

	resource, err := svc.Submit(SubmitResourceInput{
		AuthorID:       1,
		Title:          "Mechanics past papers",
		Content:        "Collected past paper questions on mechanics.",
		EducationLevel: "ALevel",
		CoverURL:       "https://cdn.example.com/mechanics.png",
	})

	require.NoError(t, err)
	assert.Equal(t, "A-LEVEL", resource.Category)
	assert.Equal(t, "https://cdn.example.com/mechanics.png", resource.CoverImage)
	assert.Equal(t, "general", resource.Subject)
	assert.Equal(t, "notes", resource.ResourceType)
	assert.Equal(t, "intermediate", resource.DifficultyLevel)
	assert.Equal(t, "active", resource.Status)
	assert.Equal(t, "Mechanics past papers", resource.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitResourceRejectsUnknownLevel(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewResourceService(db, storage.NewAssetStore(t.TempDir()))

	_, err := svc.Submit(SubmitResourceInput{
		Title:          "t",
		Content:        "c",
		EducationLevel: "kindergarten",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "education_level", verr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitResourceRemovesUploadsWhenInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	root := t.TempDir()
	svc := NewResourceService(db, storage.NewAssetStore(root))

	mock.ExpectExec("INSERT INTO `resources`").WillReturnError(errors.New("connection lost"))

	_, err := svc.Submit(SubmitResourceInput{
		AuthorID:       1,
		Title:          "Waves summary",
		Content:        "One-page waves summary.",
		EducationLevel: "igcse",
		Cover:          &storage.Upload{Filename: "waves.png", Content: bytes.NewReader([]byte("png"))},
		Additional: []storage.Upload{
			{Filename: "extra.jpg", Content: bytes.NewReader([]byte("jpg"))},
		},
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, countStoredFiles(t, root), "failed submit must not leave orphan files")
}

func TestArchiveAndReactivateResource(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewResourceService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectExec("UPDATE `resources` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.Archive(3))

	mock.ExpectExec("UPDATE `resources` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.Reactivate(3))

	mock.ExpectExec("UPDATE `resources` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.Archive(404), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteResourceRemovesLikesAndImages(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewResourceService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectQuery("SELECT .+ FROM `resources`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cover_image", "additional_images"}).
			AddRow(3, "https://cdn.example.com/mechanics.png", "resources/2024/01/a.png,resources/2024/01/b.png"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `resource_likes`").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM `resources`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Delete(3)
	require.NoError(t, err)

	// The external cover is skipped as a success; missing files count as
	// already deleted.
	assert.True(t, res.CoverDeleted)
	assert.Equal(t, 2, res.AdditionalDeleted)
	assert.Equal(t, 0, res.Failed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteResourceMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewResourceService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectQuery("SELECT .+ FROM `resources`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Delete(404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
