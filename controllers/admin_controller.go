package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/physhub/physhub/services"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// AdminController exposes the moderation endpoints. All routes behind it
// require the admin role.
type AdminController struct {
	svc *services.ForumService
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB, assets *storage.AssetStore) *AdminController {
	return &AdminController{svc: services.NewForumService(db, assets)}
}

// ListPending returns the moderation queue, oldest submission first.
func (a *AdminController) ListPending(ctx *gin.Context) {
	posts, err := a.svc.ListPending()
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": posts, "total": len(posts)})
}

// ApprovePost publishes a pending or rejected post.
func (a *AdminController) ApprovePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "unauthorized")
		return
	}

	if err := a.svc.Approve(postID, moderatorID); err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:forum:list:")

	utils.Success(ctx, gin.H{"message": "post approved"})
}

// RejectPost marks a post rejected with a mandatory reason.
func (a *AdminController) RejectPost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40131, "unauthorized")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	if err := a.svc.Reject(postID, moderatorID, req.Reason); err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:forum:list:")

	utils.Success(ctx, gin.H{"message": "post rejected"})
}

// ArchivePost hides a post from public listings.
func (a *AdminController) ArchivePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := a.svc.Archive(postID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:forum:list:")
	utils.Success(ctx, gin.H{"message": "post archived"})
}

// ReactivatePost returns an archived post to public view.
func (a *AdminController) ReactivatePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := a.svc.Reactivate(postID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:forum:list:")
	utils.Success(ctx, gin.H{"message": "post reactivated"})
}

// ModerationHistory returns all recorded decisions for one post,
// including posts that were deleted afterwards.
func (a *AdminController) ModerationHistory(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	recs, err := a.svc.Log().ForPost(postID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": recs, "total": len(recs)})
}

// ModerationStats summarizes the moderation workload.
func (a *AdminController) ModerationStats(ctx *gin.Context) {
	stats, err := a.svc.Stats()
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
