package services

import (
	"bytes"
	"errors"
	"io/fs"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physhub/physhub/storage"
)

func countStoredFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	db, mock := newMockDB(t)
	root := t.TempDir()
	svc := NewForumService(db, storage.NewAssetStore(root))

	cases := []struct {
		name  string
		in    SubmitPostInput
		field string
	}{
		{"empty title", SubmitPostInput{Content: "c", Category: "books", Topic: "waves"}, "title"},
		{"long title", SubmitPostInput{Title: strings.Repeat("t", 201), Content: "c", Category: "books", Topic: "waves"}, "title"},
		{"empty content", SubmitPostInput{Title: "t", Category: "books", Topic: "waves"}, "content"},
		{"long content", SubmitPostInput{Title: "t", Content: strings.Repeat("c", 5001), Category: "books", Topic: "waves"}, "content"},
		{"empty topic", SubmitPostInput{Title: "t", Content: "c", Category: "books"}, "topic"},
		{"long topic", SubmitPostInput{Title: "t", Content: "c", Category: "books", Topic: strings.Repeat("x", 101)}, "topic"},
		{"bad category", SubmitPostInput{Title: "t", Content: "c", Category: "memes", Topic: "waves"}, "category"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.Cover = &storage.Upload{Filename: "c.png", Content: bytes.NewReader([]byte("x"))}
			_, err := svc.Submit(tc.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	// Validation failures never reach the database or the disk.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, countStoredFiles(t, root))
}

func TestSubmitRemovesUploadsWhenInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	root := t.TempDir()
	svc := NewForumService(db, storage.NewAssetStore(root))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `forum_posts`").WillReturnError(errors.New("duplicate entry"))
	mock.ExpectRollback()

	_, err := svc.Submit(SubmitPostInput{
		AuthorID: 3,
		Title:    "Kinematics question",
		Content:  "How do I derive the range equation?",
		Category: "questions",
		Topic:    "mechanics",
		Cover:    &storage.Upload{Filename: "diagram.png", Content: bytes.NewReader([]byte("png"))},
		Attachments: []storage.Upload{
			{Filename: "working.pdf", Content: bytes.NewReader([]byte("%PDF"))},
		},
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, countStoredFiles(t, root), "failed submit must not leave orphan files")
}

func TestSubmitByAdminPublishesImmediately(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `forum_posts`").WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	post, err := svc.Submit(SubmitPostInput{
		AuthorID:      1,
		AuthorIsAdmin: true,
		Title:         "Revision timetable",
		Content:       "Pinned schedule for the mock exams.",
		Category:      "notes",
		Topic:         "revision",
	})

	require.NoError(t, err)
	assert.Equal(t, "approved", post.ApprovalStatus)
	require.NotNil(t, post.ReviewedBy)
	assert.Equal(t, uint(1), *post.ReviewedBy)
	assert.NotNil(t, post.ReviewedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveWritesAuditRecord(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "approval_status"}).AddRow(7, "pending"))
	mock.ExpectExec("UPDATE `forum_posts` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `forum_post_reviews`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Approve(7, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveAlreadyApprovedIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "approval_status"}).AddRow(7, "approved"))
	mock.ExpectCommit()

	// No update and no audit record on a repeated approval.
	require.NoError(t, svc.Approve(7, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveMissingPost(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "approval_status"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.Approve(99, 2), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectRequiresReason(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	err := svc.Reject(7, 2, "   ")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectRecordsReason(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "approval_status"}).AddRow(7, "pending"))
	mock.ExpectExec("UPDATE `forum_posts` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `forum_post_reviews`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Reject(7, 2, "duplicate of an existing thread"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveMissingPost(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectExec("UPDATE `forum_posts` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.Archive(404), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostCascades(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cover_image"}).
			AddRow(7, "forum_images/2024/01/cover_old.png"))
	mock.ExpectQuery("SELECT .+ FROM `forum_attachments`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "file_path"}).
			AddRow(1, 7, "attachments/2024/01/attachment_old.pdf"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `comment_likes`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `forum_replies`").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM `forum_attachments`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `forum_posts`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Delete(7)
	require.NoError(t, err)

	// Files absent on disk count as already deleted.
	assert.True(t, res.CoverDeleted)
	assert.Equal(t, 1, res.AttachmentsDeleted)
	assert.Equal(t, 0, res.Failed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddReplyBumpsReplyCount(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(7, "active"))
	mock.ExpectExec("INSERT INTO `forum_replies`").WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectExec("UPDATE `forum_posts` SET `reply_count`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reply, err := svc.AddReply(7, 3, "Resolve the motion into components first.")
	require.NoError(t, err)
	assert.Equal(t, uint(7), reply.PostID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostMapsConnectionFailure(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	mock.ExpectQuery("SELECT .+ FROM `forum_posts`").
		WillReturnError(&net.OpError{Op: "dial", Err: errors.New("connection refused")})

	_, _, err := svc.Get(7, true)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddReplyValidatesContent(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewForumService(db, storage.NewAssetStore(t.TempDir()))

	_, err := svc.AddReply(7, 3, "")
	assert.True(t, IsValidation(err))

	_, err = svc.AddReply(7, 3, strings.Repeat("r", 1001))
	assert.True(t, IsValidation(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
