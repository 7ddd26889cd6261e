package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/physhub/physhub/models"
)

// ModerationLog is the append-only audit trail of moderation decisions.
// The lifecycle only writes to it; reads serve admin reporting.
type ModerationLog struct {
	db *gorm.DB
}

// NewModerationLog creates a log backed by the shared database.
func NewModerationLog(db *gorm.DB) *ModerationLog {
	return &ModerationLog{db: db}
}

// Append inserts one immutable review record inside the caller's
// transaction so the record commits atomically with the transition.
func (l *ModerationLog) Append(tx *gorm.DB, postID, reviewerID uint, oldStatus, newStatus, comment string) error {
	rec := models.ReviewRecord{
		PostID:     postID,
		ReviewerID: reviewerID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Comment:    comment,
		ReviewedAt: time.Now(),
	}
	return tx.Create(&rec).Error
}

// ForPost returns all decisions recorded for a post, oldest first.
func (l *ModerationLog) ForPost(postID uint) ([]models.ReviewRecord, error) {
	var recs []models.ReviewRecord
	err := l.db.Where("post_id = ?", postID).Order("reviewed_at ASC").Find(&recs).Error
	return recs, err
}
