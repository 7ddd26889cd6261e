package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/physhub/physhub/models"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// educationCategories maps the public education level codes onto the
// internal category labels. Unknown levels are rejected at validation.
var educationCategories = map[string]string{
	"igcse":       "IGCSE",
	"alevel":      "A-LEVEL",
	"ap":          "BPHO",
	"competition": "PHYSICS_BOWL",
	"university":  "UNIVERSITY_RESOURCES",
}

// ResourceService owns the study resource lifecycle. Resources are
// published active and move between active and archived; there is no
// moderation queue for them.
type ResourceService struct {
	db     *gorm.DB
	assets *storage.AssetStore
}

// NewResourceService wires the lifecycle against the shared database and
// asset store.
func NewResourceService(db *gorm.DB, assets *storage.AssetStore) *ResourceService {
	return &ResourceService{db: db, assets: assets}
}

// SubmitResourceInput carries a new resource. Either CoverURL (an
// external address stored verbatim) or Cover (an upload) may be set;
// CoverURL wins when both are present.
type SubmitResourceInput struct {
	AuthorID        uint
	Title           string
	Description     string
	Content         string
	EducationLevel  string
	Subject         string
	ResourceType    string
	DifficultyLevel string
	CoverURL        string
	Cover           *storage.Upload
	Additional      []storage.Upload
}

// Submit validates, stores images, and inserts the resource. Uploaded
// files are removed again when the insert fails.
func (s *ResourceService) Submit(in SubmitResourceInput) (*models.Resource, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	level := strings.ToLower(strings.TrimSpace(in.EducationLevel))

	switch {
	case title == "":
		return nil, validation("title", "cannot be empty")
	case utf8.RuneCountInString(title) > maxTitleLen:
		return nil, validation("title", "exceeds 200 characters")
	case content == "":
		return nil, validation("content", "cannot be empty")
	}
	category, ok := educationCategories[level]
	if !ok {
		return nil, validation("education_level", "unknown level "+level)
	}

	var uploaded []string
	cover := strings.TrimSpace(in.CoverURL)
	if cover == "" && in.Cover != nil {
		res, err := s.assets.Put(in.Cover.Content, in.Cover.Filename, storage.KindResourceCover)
		if err != nil {
			return nil, err
		}
		cover = res.Path
		uploaded = append(uploaded, res.Path)
	}

	additional := make([]string, 0, len(in.Additional))
	for _, up := range in.Additional {
		res, err := s.assets.Put(up.Content, up.Filename, storage.KindResourceAdditional)
		if err != nil {
			s.discard(uploaded)
			return nil, err
		}
		uploaded = append(uploaded, res.Path)
		additional = append(additional, res.Path)
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = title
	}
	now := time.Now()
	resource := models.Resource{
		UserID:           in.AuthorID,
		Title:            utils.Sanitize(title),
		Description:      utils.Sanitize(description),
		Content:          utils.Sanitize(content),
		Category:         category,
		Subject:          defaultStr(in.Subject, "general"),
		ResourceType:     defaultStr(in.ResourceType, "notes"),
		DifficultyLevel:  defaultStr(in.DifficultyLevel, "intermediate"),
		CoverImage:       cover,
		AdditionalImages: strings.Join(additional, ","),
		Status:           models.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.db.Create(&resource).Error; err != nil {
		s.discard(uploaded)
		return nil, err
	}
	return &resource, nil
}

// Archive hides a resource from public listings, keeping its rows and
// files intact.
func (s *ResourceService) Archive(resourceID uint) error {
	return s.setStatus(resourceID, models.StatusArchived)
}

// Reactivate returns an archived resource to public view.
func (s *ResourceService) Reactivate(resourceID uint) error {
	return s.setStatus(resourceID, models.StatusActive)
}

func (s *ResourceService) setStatus(resourceID uint, status string) error {
	res := s.db.Model(&models.Resource{}).Where("id = ?", resourceID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a resource, its like edges, and its stored images.
// File removal is best-effort and reported through the result; external
// cover URLs are skipped as successes.
func (s *ResourceService) Delete(resourceID uint) (storage.CleanupResult, error) {
	var resource models.Resource
	if err := s.db.First(&resource, resourceID).Error; err != nil {
		return storage.CleanupResult{}, notFoundOr(err)
	}

	res := s.assets.CleanupImages(resource.CoverImage, resource.AdditionalImages)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.ResourceLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Resource{}, resourceID).Error
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// Get loads one resource. When publicOnly is set, archived resources are
// hidden as if they did not exist.
func (s *ResourceService) Get(resourceID uint, publicOnly bool) (*models.Resource, error) {
	q := s.db.Preload("User")
	if publicOnly {
		q = q.Where("status = ?", models.StatusActive)
	}
	var resource models.Resource
	if err := q.First(&resource, resourceID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &resource, nil
}

// ResourceFilter narrows resource listings. Zero values mean no
// constraint.
type ResourceFilter struct {
	Category   string
	Subject    string
	Search     string
	PublicOnly bool
	Page       int
	PageSize   int
}

// List returns one page of resources plus the total match count.
func (s *ResourceService) List(f ResourceFilter) ([]models.Resource, int64, error) {
	q := s.db.Model(&models.Resource{})
	if f.PublicOnly {
		q = q.Where("status = ?", models.StatusActive)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(f.Page, f.PageSize)
	var resources []models.Resource
	err := q.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&resources).Error
	return resources, total, err
}

// IncrementView bumps the view counter; failures are logged and
// swallowed so a lost count never breaks a page.
func (s *ResourceService) IncrementView(resourceID uint) {
	s.bump(resourceID, "view_count")
}

// IncrementDownload bumps the download counter with the same policy.
func (s *ResourceService) IncrementDownload(resourceID uint) {
	s.bump(resourceID, "download_count")
}

func (s *ResourceService) bump(resourceID uint, column string) {
	err := s.db.Model(&models.Resource{}).Where("id = ?", resourceID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	if err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("resource %s update failed id=%d err=%v", column, resourceID, err)
	}
}

func (s *ResourceService) discard(paths []string) {
	for _, p := range paths {
		_ = s.assets.Delete(p)
	}
}

func defaultStr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
