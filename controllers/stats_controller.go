package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/physhub/physhub/models"
	"github.com/physhub/physhub/utils"
)

// StatsController provides site statistics such as content counts and daily page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the platform.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var postCount int64
	var replyCount int64
	var resourceCount int64
	var dailyViews int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := s.db.Model(&models.ForumPost{}).
		Where("approval_status = ? AND status = ?", models.ApprovalApproved, models.StatusActive).
		Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Reply{}).Count(&replyCount).Error; err != nil {
		replyCount = 0
	}
	if err := s.db.Model(&models.Resource{}).
		Where("status = ?", models.StatusActive).
		Count(&resourceCount).Error; err != nil {
		resourceCount = 0
	}

	// Use string date equality to avoid timezone/type mismatches with DATE column
	today := time.Now().In(time.Local).Format("2006-01-02")
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":     userCount,
		"post_count":     postCount,
		"reply_count":    replyCount,
		"resource_count": resourceCount,
		"daily_views":    dailyViews,
	})
}
