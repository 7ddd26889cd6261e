package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/physhub/physhub/middleware"
	"github.com/physhub/physhub/services"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// openUpload converts one multipart file header into a service upload.
// The caller must invoke the returned closer after the service call.
func openUpload(fh *multipart.FileHeader) (*storage.Upload, func(), error) {
	file, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &storage.Upload{Filename: fh.Filename, Content: file}, func() { _ = file.Close() }, nil
}

// respondServiceError maps service and storage errors onto the uniform
// JSON envelope.
func respondServiceError(ctx *gin.Context, err error) {
	var verr *services.ValidationError
	var tooLarge *storage.PayloadTooLargeError
	switch {
	case errors.As(err, &verr):
		utils.Error(ctx, http.StatusBadRequest, 40001, verr.Error())
	case errors.Is(err, storage.ErrNoFile):
		utils.Error(ctx, http.StatusBadRequest, 40002, "no file provided")
	case errors.Is(err, storage.ErrFileType):
		utils.Error(ctx, http.StatusBadRequest, 40003, "file type not allowed")
	case errors.As(err, &tooLarge):
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, tooLarge.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	case errors.Is(err, services.ErrStorageUnavailable):
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "storage unavailable")
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorf("unhandled service error: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
