package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/physhub/physhub/middleware"
	"github.com/physhub/physhub/services"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// ForumController exposes the forum post and reply endpoints.
type ForumController struct {
	svc    *services.ForumService
	likes  *services.LikeService
	assets *storage.AssetStore
}

// NewForumController creates a new ForumController instance.
func NewForumController(db *gorm.DB, assets *storage.AssetStore) *ForumController {
	return &ForumController{
		svc:    services.NewForumService(db, assets),
		likes:  services.NewLikeService(db),
		assets: assets,
	}
}

// ListPosts returns paginated approved posts including author information.
func (f *ForumController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))

	// Cache homepage/category lists when no search term to avoid cache key explosion
	cacheKey := fmt.Sprintf("cache:forum:list:cat=%s:page=%d:size=%d", category, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	posts, total, err := f.svc.List(services.PostFilter{
		Category:   category,
		Search:     search,
		PublicOnly: true,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	}
	if search == "" {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its replies. Pending, rejected, and
// archived posts stay visible to their author and to admins only.
func (f *ForumController) GetPost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	publicOnly := !middleware.IsAdmin(ctx)
	post, replies, err := f.svc.Get(postID, publicOnly)
	if errors.Is(err, services.ErrNotFound) && publicOnly {
		// The author may view their own unpublished post.
		if userID, authed := getUserID(ctx); authed {
			if p, r, e := f.svc.Get(postID, false); e == nil && p.UserID == userID {
				post, replies, err = p, r, nil
			}
		}
	}
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	f.svc.IncrementView(postID)
	utils.Success(ctx, gin.H{"post": post, "replies": replies})
}

// CreatePost accepts a multipart submission with an optional cover image
// and attachments.
func (f *ForumController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if !f.svc.RegistrationApproved(userID) {
		utils.Error(ctx, http.StatusForbidden, 40303, "account pending approval")
		return
	}

	in := services.SubmitPostInput{
		AuthorID:      userID,
		AuthorIsAdmin: middleware.IsAdmin(ctx),
		Title:         ctx.PostForm("title"),
		Content:       ctx.PostForm("content"),
		Category:      ctx.PostForm("category"),
		Topic:         ctx.PostForm("topic"),
	}

	var closers []func()
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	if fh, err := ctx.FormFile("cover_image"); err == nil {
		up, closeFn, err := openUpload(fh)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "failed to read cover image")
			return
		}
		closers = append(closers, closeFn)
		in.Cover = up
	}

	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["attachments"] {
			up, closeFn, err := openUpload(fh)
			if err != nil {
				utils.Error(ctx, http.StatusBadRequest, 40031, "failed to read attachment")
				return
			}
			closers = append(closers, closeFn)
			in.Attachments = append(in.Attachments, *up)
		}
	}

	post, err := f.svc.Submit(in)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:forum:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts:")

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post with its replies, likes, and files. The
// author or an admin may delete.
func (f *ForumController) DeletePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	post, _, err := f.svc.Get(postID, false)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if post.UserID != userID && !middleware.IsAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	res, err := f.svc.Delete(postID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:forum:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(post.UserID)) + ":posts:")

	utils.Success(ctx, gin.H{"message": "post deleted", "cleanup": res})
}

// CreateReply appends a reply to an active post.
func (f *ForumController) CreateReply(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	reply, err := f.svc.AddReply(postID, userID, req.Content)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	// Reply counts appear in cached listings.
	utils.InvalidateByPrefix("cache:forum:list:")

	utils.Success(ctx, gin.H{"reply": reply})
}

// DeleteReply removes one reply. Admin only.
func (f *ForumController) DeleteReply(ctx *gin.Context) {
	replyID, ok := parseIDParam(ctx, "replyId")
	if !ok {
		return
	}
	if err := f.svc.DeleteReply(replyID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "reply deleted"})
}

// ToggleReplyLike flips the caller's like on a reply and returns the
// derived count.
func (f *ForumController) ToggleReplyLike(ctx *gin.Context) {
	replyID, ok := parseIDParam(ctx, "replyId")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	liked, count, err := f.likes.ToggleReplyLike(userID, replyID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"liked": liked, "like_count": count})
}

// ListMyPosts returns the caller's posts across all approval states.
func (f *ForumController) ListMyPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := fmt.Sprintf("cache:user:%d:posts:page=%d:size=%d", userID, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	posts, total, err := f.svc.ListByAuthor(userID, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 10*time.Minute)
	utils.Success(ctx, payload)
}

// DownloadAttachment streams an attachment under its original filename.
func (f *ForumController) DownloadAttachment(ctx *gin.Context) {
	attID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	att, err := f.svc.Attachment(attID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	phys, err := f.assets.Resolve(att.FilePath)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "attachment file missing")
		return
	}
	ctx.FileAttachment(phys, att.Name)
}
