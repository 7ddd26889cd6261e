package models

import "time"

// Approval workflow states for forum posts.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Visibility lifecycle states shared by posts and resources.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// ForumPost is a user-submitted question that passes through moderation
// before it becomes publicly visible. rejection_reason is set exactly when
// approval_status is 'rejected'; reviewed_by/reviewed_at are set once a
// moderator has issued a decision.
type ForumPost struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"index;not null" json:"user_id"`
	Title           string       `gorm:"size:200;not null" json:"title"`
	Content         string       `gorm:"type:text;not null" json:"content"`
	Category        string       `gorm:"size:32;not null" json:"category"`
	Topic           string       `gorm:"size:100" json:"topic"`
	CoverImage      string       `gorm:"size:512" json:"cover_image"`
	ViewCount       int          `gorm:"default:0" json:"view_count"`
	ReplyCount      int          `gorm:"default:0" json:"reply_count"`
	Status          string       `gorm:"size:16;default:'active'" json:"status"`
	ApprovalStatus  string       `gorm:"size:16;default:'pending';index" json:"approval_status"`
	ReviewedBy      *uint        `json:"reviewed_by"`
	ReviewedAt      *time.Time   `json:"reviewed_at"`
	RejectionReason *string      `gorm:"size:512" json:"rejection_reason"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	User            User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Attachments     []Attachment `gorm:"foreignKey:PostID" json:"attachments"`
}
