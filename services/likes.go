package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/physhub/physhub/models"
)

// LikeService manages (user, target) like edges. A user holds at most
// one edge per target; the displayed count is always derived from
// COUNT(*) over the edge table, with the count column on the target row
// kept as a cache refreshed inside the same transaction.
type LikeService struct {
	db *gorm.DB
}

// NewLikeService wires the counters against the shared database.
func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{db: db}
}

// ToggleResourceLike flips the caller's like on a resource and returns
// the new state plus the derived count. Create and delete, recount, and
// cache refresh happen in one transaction, so concurrent toggles settle
// on a count matching the surviving edges.
func (s *LikeService) ToggleResourceLike(userID, resourceID uint) (bool, int64, error) {
	var liked bool
	var count int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var resource models.Resource
		if err := tx.First(&resource, resourceID).Error; err != nil {
			return notFoundOr(err)
		}

		var edge models.ResourceLike
		err := tx.Where("user_id = ? AND resource_id = ?", userID, resourceID).First(&edge).Error
		switch {
		case err == nil:
			if err := tx.Delete(&models.ResourceLike{}, edge.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			edge = models.ResourceLike{UserID: userID, ResourceID: resourceID, CreatedAt: time.Now()}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}

		if err := tx.Model(&models.ResourceLike{}).
			Where("resource_id = ?", resourceID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Resource{}).Where("id = ?", resourceID).
			UpdateColumn("like_count", count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// ToggleReplyLike flips the caller's like on a reply with the same
// transaction shape as resource likes.
func (s *LikeService) ToggleReplyLike(userID, replyID uint) (bool, int64, error) {
	var liked bool
	var count int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var reply models.Reply
		if err := tx.First(&reply, replyID).Error; err != nil {
			return notFoundOr(err)
		}

		var edge models.ReplyLike
		err := tx.Where("user_id = ? AND reply_id = ?", userID, replyID).First(&edge).Error
		switch {
		case err == nil:
			if err := tx.Delete(&models.ReplyLike{}, edge.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			edge = models.ReplyLike{UserID: userID, ReplyID: replyID, CreatedAt: time.Now()}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}

		if err := tx.Model(&models.ReplyLike{}).
			Where("reply_id = ?", replyID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Reply{}).Where("id = ?", replyID).
			UpdateColumn("like_count", count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// ResourceLiked reports whether the user currently likes the resource.
func (s *LikeService) ResourceLiked(userID, resourceID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.ResourceLike{}).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Count(&n).Error
	return n > 0, err
}

// ReplyLiked reports whether the user currently likes the reply.
func (s *LikeService) ReplyLiked(userID, replyID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.ReplyLike{}).
		Where("user_id = ? AND reply_id = ?", userID, replyID).
		Count(&n).Error
	return n > 0, err
}

// RecomputeResourceLikes rebuilds the cached count from the edge table.
// Used by reconciliation jobs after partial failures.
func (s *LikeService) RecomputeResourceLikes(resourceID uint) (int64, error) {
	var count int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ResourceLike{}).
			Where("resource_id = ?", resourceID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Resource{}).Where("id = ?", resourceID).
			UpdateColumn("like_count", count).Error
	})
	return count, err
}
