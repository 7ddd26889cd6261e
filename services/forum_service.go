package services

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/physhub/physhub/models"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// Input length limits, counted in runes.
const (
	maxTitleLen   = 200
	maxTopicLen   = 100
	maxContentLen = 5000
	maxReplyLen   = 1000
)

var forumCategories = map[string]bool{
	"books": true, "homework": true, "tests": true, "notes": true, "questions": true,
}

// ForumService owns the forum post lifecycle: submission with uploads,
// moderation transitions, replies, and cascading deletion.
type ForumService struct {
	db     *gorm.DB
	assets *storage.AssetStore
	log    *ModerationLog
}

// NewForumService wires the lifecycle against the shared database and
// asset store.
func NewForumService(db *gorm.DB, assets *storage.AssetStore) *ForumService {
	return &ForumService{db: db, assets: assets, log: NewModerationLog(db)}
}

// Log exposes the moderation audit trail for read-side handlers.
func (s *ForumService) Log() *ModerationLog { return s.log }

// RegistrationApproved reports whether the author's account may submit
// content. Unknown authors pass; the database insert rejects them.
func (s *ForumService) RegistrationApproved(userID uint) bool {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return true
	}
	return user.RegistrationStatus != models.RegistrationPending
}

// SubmitPostInput carries everything needed to create a post. Cover and
// Attachments are raw uploads; the service stores them before touching
// the database.
type SubmitPostInput struct {
	AuthorID      uint
	AuthorIsAdmin bool
	Title         string
	Content       string
	Category      string
	Topic         string
	Cover         *storage.Upload
	Attachments   []storage.Upload
}

// Submit validates, stores uploads, and inserts the post with its
// attachment rows in one transaction. Admin authors publish immediately;
// everyone else starts in the pending queue. If the database insert
// fails after files were written, the files are removed again so the
// operation is all-or-nothing.
func (s *ForumService) Submit(in SubmitPostInput) (*models.ForumPost, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	topic := strings.TrimSpace(in.Topic)
	category := strings.ToLower(strings.TrimSpace(in.Category))

	switch {
	case title == "":
		return nil, validation("title", "cannot be empty")
	case utf8.RuneCountInString(title) > maxTitleLen:
		return nil, validation("title", "exceeds 200 characters")
	case content == "":
		return nil, validation("content", "cannot be empty")
	case utf8.RuneCountInString(content) > maxContentLen:
		return nil, validation("content", "exceeds 5000 characters")
	case topic == "":
		return nil, validation("topic", "cannot be empty")
	case utf8.RuneCountInString(topic) > maxTopicLen:
		return nil, validation("topic", "exceeds 100 characters")
	case !forumCategories[category]:
		return nil, validation("category", "unknown category "+category)
	}

	var uploaded []string
	coverPath := ""
	if in.Cover != nil {
		res, err := s.assets.Put(in.Cover.Content, in.Cover.Filename, storage.KindCover)
		if err != nil {
			return nil, err
		}
		coverPath = res.Path
		uploaded = append(uploaded, res.Path)
	}

	attachments := make([]models.Attachment, 0, len(in.Attachments))
	for _, up := range in.Attachments {
		res, err := s.assets.Put(up.Content, up.Filename, storage.KindAttachment)
		if err != nil {
			s.discard(uploaded)
			return nil, err
		}
		uploaded = append(uploaded, res.Path)
		attachments = append(attachments, models.Attachment{
			Name:     filepath.Base(strings.TrimSpace(up.Filename)),
			FilePath: res.Path,
			Size:     res.Size,
		})
	}

	now := time.Now()
	post := models.ForumPost{
		UserID:         in.AuthorID,
		Title:          utils.Sanitize(title),
		Content:        utils.Sanitize(content),
		Category:       category,
		Topic:          utils.Sanitize(topic),
		CoverImage:     coverPath,
		Status:         models.StatusActive,
		ApprovalStatus: models.ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.AuthorIsAdmin {
		post.ApprovalStatus = models.ApprovalApproved
		post.ReviewedBy = &in.AuthorID
		post.ReviewedAt = &now
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].PostID = post.ID
			attachments[i].CreatedAt = now
			if err := tx.Create(&attachments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.discard(uploaded)
		return nil, err
	}
	post.Attachments = attachments
	return &post, nil
}

// Approve transitions a pending or rejected post to approved and appends
// an audit record in the same transaction. Approving an already approved
// post changes nothing and leaves no audit entry.
func (s *ForumService) Approve(postID, moderatorID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.ForumPost
		if err := tx.First(&post, postID).Error; err != nil {
			return notFoundOr(err)
		}
		if post.ApprovalStatus == models.ApprovalApproved {
			return nil
		}
		now := time.Now()
		updates := map[string]interface{}{
			"approval_status":  models.ApprovalApproved,
			"reviewed_by":      moderatorID,
			"reviewed_at":      now,
			"rejection_reason": nil,
			"updated_at":       now,
		}
		if err := tx.Model(&models.ForumPost{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		return s.log.Append(tx, post.ID, moderatorID, post.ApprovalStatus, models.ApprovalApproved, "")
	})
}

// Reject marks a post rejected with a mandatory reason and records the
// decision. Unlike Approve, repeating a rejection is allowed so the
// reason can be amended, and every repetition is audited.
func (s *ForumService) Reject(postID, moderatorID uint, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validation("reason", "cannot be empty")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.ForumPost
		if err := tx.First(&post, postID).Error; err != nil {
			return notFoundOr(err)
		}
		now := time.Now()
		updates := map[string]interface{}{
			"approval_status":  models.ApprovalRejected,
			"reviewed_by":      moderatorID,
			"reviewed_at":      now,
			"rejection_reason": reason,
			"updated_at":       now,
		}
		if err := tx.Model(&models.ForumPost{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		return s.log.Append(tx, post.ID, moderatorID, post.ApprovalStatus, models.ApprovalRejected, reason)
	})
}

// Archive hides a post from public listings without deleting anything.
func (s *ForumService) Archive(postID uint) error {
	return s.setStatus(postID, models.StatusArchived)
}

// Reactivate returns an archived post to public view.
func (s *ForumService) Reactivate(postID uint) error {
	return s.setStatus(postID, models.StatusActive)
}

func (s *ForumService) setStatus(postID uint, status string) error {
	res := s.db.Model(&models.ForumPost{}).Where("id = ?", postID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post with everything hanging off it. Physical files
// are removed best-effort first and their outcome reported; the database
// cascade over reply likes, replies, attachment rows, and the post row
// runs in one transaction. Review records are kept.
func (s *ForumService) Delete(postID uint) (storage.CleanupResult, error) {
	var post models.ForumPost
	if err := s.db.First(&post, postID).Error; err != nil {
		return storage.CleanupResult{}, notFoundOr(err)
	}
	var attachments []models.Attachment
	if err := s.db.Where("post_id = ?", postID).Find(&attachments).Error; err != nil {
		return storage.CleanupResult{}, err
	}

	res := s.assets.CleanupImages(post.CoverImage, "")
	paths := make([]string, 0, len(attachments))
	for _, a := range attachments {
		paths = append(paths, a.FilePath)
	}
	s.assets.CleanupAttachments(&res, paths)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		replyIDs := tx.Model(&models.Reply{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("reply_id IN (?)", replyIDs).Delete(&models.ReplyLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ForumPost{}, postID).Error
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// AddReply appends a reply to an active post and bumps the cached reply
// count in the same transaction.
func (s *ForumService) AddReply(postID, userID uint, content string) (*models.Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validation("content", "cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxReplyLen {
		return nil, validation("content", "exceeds 1000 characters")
	}

	reply := models.Reply{
		PostID:    postID,
		UserID:    userID,
		Content:   utils.Sanitize(content),
		CreatedAt: time.Now(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var post models.ForumPost
		if err := tx.Where("status = ?", models.StatusActive).First(&post, postID).Error; err != nil {
			return notFoundOr(err)
		}
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.ForumPost{}).Where("id = ?", postID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// DeleteReply removes one reply with its like edges and decrements the
// cached reply count, floored at zero.
func (s *ForumService) DeleteReply(replyID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var reply models.Reply
		if err := tx.First(&reply, replyID).Error; err != nil {
			return notFoundOr(err)
		}
		if err := tx.Where("reply_id = ?", replyID).Delete(&models.ReplyLike{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Reply{}, replyID).Error; err != nil {
			return err
		}
		return tx.Model(&models.ForumPost{}).Where("id = ?", reply.PostID).
			UpdateColumn("reply_count", gorm.Expr("GREATEST(reply_count - 1, 0)")).Error
	})
}

// IncrementView bumps the view counter without surfacing failures; a
// lost increment never breaks a page load.
func (s *ForumService) IncrementView(postID uint) {
	err := s.db.Model(&models.ForumPost{}).Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("post view count update failed id=%d err=%v", postID, err)
	}
}

// PostFilter narrows forum listings. Zero values mean no constraint;
// PublicOnly restricts results to approved active posts.
type PostFilter struct {
	Category   string
	Search     string
	PublicOnly bool
	Page       int
	PageSize   int
}

// List returns one page of posts plus the total match count.
func (s *ForumService) List(f PostFilter) ([]models.ForumPost, int64, error) {
	q := s.db.Model(&models.ForumPost{})
	if f.PublicOnly {
		q = q.Where("approval_status = ? AND status = ?", models.ApprovalApproved, models.StatusActive)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(f.Page, f.PageSize)
	var posts []models.ForumPost
	err := q.Preload("User").Preload("Attachments").
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&posts).Error
	return posts, total, err
}

// ListByAuthor returns a user's own posts regardless of approval state,
// so authors can see pending and rejected submissions.
func (s *ForumService) ListByAuthor(userID uint, page, pageSize int) ([]models.ForumPost, int64, error) {
	q := s.db.Model(&models.ForumPost{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p, size := normalizePage(page, pageSize)
	var posts []models.ForumPost
	err := q.Preload("Attachments").
		Order("created_at DESC").
		Offset((p - 1) * size).Limit(size).
		Find(&posts).Error
	return posts, total, err
}

// ListPending returns the moderation queue, oldest submission first.
func (s *ForumService) ListPending() ([]models.ForumPost, error) {
	var posts []models.ForumPost
	err := s.db.Preload("User").Preload("Attachments").
		Where("approval_status = ?", models.ApprovalPending).
		Order("created_at ASC").
		Find(&posts).Error
	return posts, err
}

// Get loads a post with author, attachments, and replies. When
// publicOnly is set, posts outside approved+active are hidden as if
// they did not exist.
func (s *ForumService) Get(postID uint, publicOnly bool) (*models.ForumPost, []models.Reply, error) {
	q := s.db.Preload("User").Preload("Attachments")
	if publicOnly {
		q = q.Where("approval_status = ? AND status = ?", models.ApprovalApproved, models.StatusActive)
	}
	var post models.ForumPost
	if err := q.First(&post, postID).Error; err != nil {
		return nil, nil, notFoundOr(err)
	}
	var replies []models.Reply
	err := s.db.Preload("User").
		Where("post_id = ?", postID).
		Order("like_count DESC, created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, nil, err
	}
	return &post, replies, nil
}

// Attachment loads one attachment row for download handlers.
func (s *ForumService) Attachment(attachmentID uint) (*models.Attachment, error) {
	var att models.Attachment
	if err := s.db.First(&att, attachmentID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &att, nil
}

// ForumStats summarizes the moderation workload.
type ForumStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Stats counts posts per approval state for the admin dashboard.
func (s *ForumService) Stats() (ForumStats, error) {
	var st ForumStats
	if err := s.db.Model(&models.ForumPost{}).Count(&st.Total).Error; err != nil {
		return st, err
	}
	counts := map[string]*int64{
		models.ApprovalPending:  &st.Pending,
		models.ApprovalApproved: &st.Approved,
		models.ApprovalRejected: &st.Rejected,
	}
	for status, dst := range counts {
		if err := s.db.Model(&models.ForumPost{}).
			Where("approval_status = ?", status).Count(dst).Error; err != nil {
			return st, err
		}
	}
	return st, nil
}

func (s *ForumService) discard(paths []string) {
	for _, p := range paths {
		_ = s.assets.Delete(p)
	}
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}
	return page, size
}
