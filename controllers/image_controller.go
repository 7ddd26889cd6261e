package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// ImageController serves stored images by their logical path, including
// paths recorded under older layout conventions.
type ImageController struct {
	assets *storage.AssetStore
}

// NewImageController creates a new ImageController instance.
func NewImageController(assets *storage.AssetStore) *ImageController {
	return &ImageController{assets: assets}
}

// Serve streams the image behind a logical path. Immutable filenames
// make long-lived client caching safe.
func (i *ImageController) Serve(ctx *gin.Context) {
	logical := strings.TrimPrefix(ctx.Param("path"), "/")
	phys, err := i.assets.Resolve(logical)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "image not found")
		return
	}

	ctx.Header("Cache-Control", "public, max-age=86400")
	ctx.File(phys)
}
