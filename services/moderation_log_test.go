package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerationLogAppend(t *testing.T) {
	db, mock := newMockDB(t)
	log := NewModerationLog(db)

	mock.ExpectExec("INSERT INTO `forum_post_reviews`").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, log.Append(db, 7, 2, "pending", "approved", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModerationLogForPost(t *testing.T) {
	db, mock := newMockDB(t)
	log := NewModerationLog(db)

	mock.ExpectQuery("SELECT .+ FROM `forum_post_reviews`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "reviewer_id", "old_status", "new_status", "comment"}).
			AddRow(1, 7, 2, "pending", "rejected", "needs more detail").
			AddRow(2, 7, 2, "rejected", "approved", ""))

	recs, err := log.ForPost(7)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rejected", recs[0].NewStatus)
	assert.Equal(t, "approved", recs[1].NewStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
