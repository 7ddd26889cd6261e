package models

import "time"

// ReviewRecord is one immutable moderation decision on a forum post.
// Records are append-only: they are never updated or deleted, and they
// survive deletion of the post they refer to.
type ReviewRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"index;not null" json:"post_id"`
	ReviewerID uint      `gorm:"not null" json:"reviewer_id"`
	OldStatus  string    `gorm:"size:16;not null" json:"old_status"`
	NewStatus  string    `gorm:"size:16;not null" json:"new_status"`
	Comment    string    `gorm:"size:512" json:"comment"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// TableName keeps the historical table name.
func (ReviewRecord) TableName() string { return "forum_post_reviews" }
