package models

import "time"

// ResourceLike is a (user, resource) like edge. The unique index enforces
// at most one edge per pair; the displayed count is derived from COUNT(*)
// over this table.
type ResourceLike struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_resource_like;not null" json:"user_id"`
	ResourceID uint      `gorm:"uniqueIndex:idx_resource_like;not null" json:"resource_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReplyLike is a (user, reply) like edge with the same uniqueness rule.
type ReplyLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_reply_like;not null" json:"user_id"`
	ReplyID   uint      `gorm:"uniqueIndex:idx_reply_like;not null;column:reply_id" json:"reply_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the historical table name.
func (ReplyLike) TableName() string { return "comment_likes" }
