package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/physhub/physhub/middleware"
	"github.com/physhub/physhub/services"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// ResourceController exposes the study resource endpoints.
type ResourceController struct {
	svc   *services.ResourceService
	likes *services.LikeService
}

// NewResourceController creates a new ResourceController instance.
func NewResourceController(db *gorm.DB, assets *storage.AssetStore) *ResourceController {
	return &ResourceController{
		svc:   services.NewResourceService(db, assets),
		likes: services.NewLikeService(db),
	}
}

// ListResources returns paginated active resources.
func (r *ResourceController) ListResources(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))
	subject := strings.TrimSpace(ctx.Query("subject"))

	cacheKey := fmt.Sprintf("cache:resources:list:cat=%s:sub=%s:page=%d:size=%d", category, subject, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	resources, total, err := r.svc.List(services.ResourceFilter{
		Category:   category,
		Subject:    subject,
		Search:     search,
		PublicOnly: !middleware.IsAdmin(ctx),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	payload := gin.H{
		"items":      resources,
		"pagination": paginationPayload(page, pageSize, total),
	}
	if search == "" && !middleware.IsAdmin(ctx) {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetResource returns one resource. Archived resources are visible to
// admins only.
func (r *ResourceController) GetResource(ctx *gin.Context) {
	resourceID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	resource, err := r.svc.Get(resourceID, !middleware.IsAdmin(ctx))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	r.svc.IncrementView(resourceID)

	liked := false
	if userID, authed := getUserID(ctx); authed {
		liked, _ = r.likes.ResourceLiked(userID, resourceID)
	}
	utils.Success(ctx, gin.H{"resource": resource, "liked": liked})
}

// CreateResource accepts a multipart submission. Admin only.
func (r *ResourceController) CreateResource(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	in := services.SubmitResourceInput{
		AuthorID:        userID,
		Title:           ctx.PostForm("title"),
		Description:     ctx.PostForm("description"),
		Content:         ctx.PostForm("content"),
		EducationLevel:  ctx.PostForm("education_level"),
		Subject:         ctx.PostForm("subject"),
		ResourceType:    ctx.PostForm("resource_type"),
		DifficultyLevel: ctx.PostForm("difficulty_level"),
		CoverURL:        ctx.PostForm("cover_url"),
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
			utils.Error(ctx, http.StatusBadRequest, 40032, "failed to read cover image")
			return
		}
		closers = append(closers, closeFn)
		in.Cover = up
	}

	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["additional_images"] {
			up, closeFn, err := openUpload(fh)
			if err != nil {
				utils.Error(ctx, http.StatusBadRequest, 40033, "failed to read image")
				return
			}
			closers = append(closers, closeFn)
			in.Additional = append(in.Additional, *up)
		}
	}

	resource, err := r.svc.Submit(in)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:resources:list:")

	utils.Success(ctx, gin.H{"resource": resource})
}

// ArchiveResource hides a resource from public listings. Admin only.
func (r *ResourceController) ArchiveResource(ctx *gin.Context) {
	resourceID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := r.svc.Archive(resourceID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:resources:list:")
	utils.Success(ctx, gin.H{"message": "resource archived"})
}

// ReactivateResource returns an archived resource to public view. Admin only.
func (r *ResourceController) ReactivateResource(ctx *gin.Context) {
	resourceID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := r.svc.Reactivate(resourceID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:resources:list:")
	utils.Success(ctx, gin.H{"message": "resource reactivated"})
}

// DeleteResource removes a resource, its likes, and its images. Admin only.
func (r *ResourceController) DeleteResource(ctx *gin.Context) {
	resourceID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	res, err := r.svc.Delete(resourceID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:resources:list:")

	utils.Success(ctx, gin.H{"message": "resource deleted", "cleanup": res})
}

// ToggleLike flips the caller's like and returns the derived count.
func (r *ResourceController) ToggleLike(ctx *gin.Context) {
	resourceID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
		return
	}

	liked, count, err := r.likes.ToggleResourceLike(userID, resourceID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"liked": liked, "like_count": count})
}

// LikedStatus reports which of the submitted resource ids the caller
// currently likes.
func (r *ResourceController) LikedStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40122, "unauthorized")
		return
	}

	var req struct {
		ResourceIDs []uint `json:"resource_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	liked := map[uint]bool{}
	for _, id := range utils.UniqueUint(req.ResourceIDs) {
		ok, err := r.likes.ResourceLiked(userID, id)
		if err != nil {
			respondServiceError(ctx, err)
			return
		}
		liked[id] = ok
	}
	utils.Success(ctx, gin.H{"liked": liked})
}

// RecordDownload bumps the download counter.
func (r *ResourceController) RecordDownload(ctx *gin.Context) {
	resourceID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if _, err := r.svc.Get(resourceID, true); err != nil {
		respondServiceError(ctx, err)
		return
	}
	r.svc.IncrementDownload(resourceID)
	utils.Success(ctx, gin.H{"message": "download recorded"})
}
