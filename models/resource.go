package models

import "time"

// Resource is an admin-published study resource. Resources skip the forum
// moderation workflow: they are created active and only move between
// active and archived. AdditionalImages holds an ordered comma-joined list
// of logical image paths.
type Resource struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Title            string    `gorm:"size:200;not null" json:"title"`
	Description      string    `gorm:"size:512" json:"description"`
	Content          string    `gorm:"type:text" json:"content"`
	Category         string    `gorm:"size:32;not null" json:"category"`
	Subject          string    `gorm:"size:64" json:"subject"`
	ResourceType     string    `gorm:"size:32" json:"resource_type"`
	DifficultyLevel  string    `gorm:"size:32" json:"difficulty_level"`
	CoverImage       string    `gorm:"size:512" json:"cover_image"`
	AdditionalImages string    `gorm:"type:text" json:"additional_images"`
	Status           string    `gorm:"size:16;default:'active';index" json:"status"`
	ViewCount        int       `gorm:"default:0" json:"view_count"`
	DownloadCount    int       `gorm:"default:0" json:"download_count"`
	LikeCount        int       `gorm:"default:0" json:"like_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	User             User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
