package models

import "time"

// Attachment records one uploaded file belonging to a forum post. FilePath
// is the storage-root-relative logical path; Name is the original filename
// shown on download.
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"`
	Size      int64     `gorm:"default:0" json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the historical table name.
func (Attachment) TableName() string { return "forum_attachments" }
