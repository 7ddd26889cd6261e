package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/physhub/physhub/utils"
)

// Kind classifies an upload and decides its directory segment, filename
// prefix, and whether the image extension allow-list applies.
type Kind string

const (
	KindCover              Kind = "cover"
	KindAdditional         Kind = "additional"
	KindAttachment         Kind = "attachment"
	KindResourceCover      Kind = "resource_cover"
	KindResourceAdditional Kind = "resource_additional"
)

// DefaultMaxSize caps every upload at 5MB.
const DefaultMaxSize = 5 * 1024 * 1024

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

// knownSegments are the directory prefixes the current path convention
// uses. Logical paths lacking one of these come from the legacy flat
// layout and are resolved through the fallback chain.
var knownSegments = []string{"forum_images", "resources", "attachments"}

var (
	// ErrNoFile indicates an empty or missing declared filename.
	ErrNoFile = errors.New("no file provided")
	// ErrFileType indicates an extension outside the image allow-list.
	ErrFileType = errors.New("file type not allowed")
	// ErrNotExist indicates the logical path resolved to no physical file.
	ErrNotExist = errors.New("asset does not exist")
)

// PayloadTooLargeError reports an upload exceeding the configured cap.
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("file size %d exceeds limit of %d bytes", e.Size, e.Limit)
}

// AssetIOError wraps a filesystem failure during put or delete.
type AssetIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *AssetIOError) Error() string {
	return fmt.Sprintf("asset %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AssetIOError) Unwrap() error { return e.Err }

// Upload is one pending file handed over by the transport layer.
type Upload struct {
	Filename string
	Content  io.Reader
}

// PutResult describes a stored asset. Path is storage-root-relative and is
// the only value callers should persist.
type PutResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// AssetStore persists uploaded binaries under a local storage root and
// resolves logical paths recorded under older layout conventions. It holds
// no locks: generated filenames are collision-free, so concurrent puts
// need no coordination, and a racing delete is a harmless no-op.
type AssetStore struct {
	roots   []string
	maxSize int64
}

// NewAssetStore creates a store writing to root. Extra roots are searched
// (read/delete only) for assets stored by earlier deployments.
func NewAssetStore(root string, extraRoots ...string) *AssetStore {
	roots := append([]string{root}, extraRoots...)
	return &AssetStore{roots: roots, maxSize: DefaultMaxSize}
}

// SetMaxSize overrides the upload size cap.
func (s *AssetStore) SetMaxSize(limit int64) {
	if limit > 0 {
		s.maxSize = limit
	}
}

func (k Kind) segment() string {
	switch k {
	case KindAttachment:
		return "attachments"
	case KindResourceCover, KindResourceAdditional:
		return "resources"
	default:
		return "forum_images"
	}
}

func (k Kind) imageOnly() bool { return k != KindAttachment }

// Put validates and stores an upload, returning its logical path.
// Image kinds are restricted to the extension allow-list; attachments may
// be any type but share the size cap. Files land in a YYYY/MM shard under
// the kind's segment with a timestamp plus random suffix name, so two
// concurrent puts never collide.
func (s *AssetStore) Put(r io.Reader, declaredName string, kind Kind) (PutResult, error) {
	name := filepath.Base(strings.TrimSpace(declaredName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return PutResult{}, ErrNoFile
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if kind.imageOnly() && !imageExtensions[ext] {
		return PutResult{}, ErrFileType
	}

	now := time.Now()
	dateDir := now.Format("2006/01")
	dir := filepath.Join(s.roots[0], kind.segment(), filepath.FromSlash(dateDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PutResult{}, &AssetIOError{Op: "mkdir", Path: dir, Err: err}
	}

	filename := buildFilename(kind, name, ext, now)
	dst := filepath.Join(dir, filename)

	out, err := os.Create(dst)
	if err != nil {
		return PutResult{}, &AssetIOError{Op: "create", Path: dst, Err: err}
	}

	// Read one byte past the cap so oversized payloads are detected
	// without buffering them fully.
	lr := &io.LimitedReader{R: r, N: s.maxSize + 1}
	written, err := io.Copy(out, lr)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return PutResult{}, &AssetIOError{Op: "write", Path: dst, Err: err}
	}
	if written > s.maxSize {
		_ = os.Remove(dst)
		return PutResult{}, &PayloadTooLargeError{Size: written, Limit: s.maxSize}
	}

	logical := path.Join(kind.segment(), dateDir, filename)
	return PutResult{Path: logical, Filename: filename, Size: written}, nil
}

// Resolve maps a logical path to a physical location, trying the exact
// path under every root first and then the legacy fallbacks: flat paths
// gain a segment prefix, and nested resource paths are retried flat.
func (s *AssetStore) Resolve(logical string) (string, error) {
	logical = strings.TrimPrefix(strings.TrimSpace(logical), "/")
	if logical == "" {
		return "", ErrNotExist
	}
	for _, cand := range s.candidates(logical) {
		if fileExists(cand) {
			return cand, nil
		}
	}
	return "", ErrNotExist
}

// Delete removes the physical file behind a logical path. It is
// idempotent: a path that resolves nowhere is treated as already deleted.
// External URLs are skipped as successes since the store never owned them.
// Permission failures return false instead of propagating.
func (s *AssetStore) Delete(logical string) bool {
	logical = strings.TrimSpace(logical)
	if logical == "" || strings.HasPrefix(logical, "http") {
		return true
	}
	phys, err := s.Resolve(logical)
	if err != nil {
		// Absent at every candidate location, including the canonical
		// one: nothing left to delete.
		return true
	}
	if err := os.Remove(phys); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("asset delete failed path=%s err=%v", phys, err)
		}
		return false
	}
	return true
}

// CleanupResult summarizes a best-effort cascade deletion so callers can
// report partial success and queue failures for offline reconciliation.
type CleanupResult struct {
	CoverDeleted       bool     `json:"cover_deleted"`
	AdditionalDeleted  int      `json:"additional_deleted"`
	AdditionalFailed   int      `json:"additional_failed"`
	AttachmentsDeleted int      `json:"attachments_deleted"`
	AttachmentsFailed  int      `json:"attachments_failed"`
	Errors             []string `json:"errors,omitempty"`
}

// Failed returns the total number of files that could not be removed.
func (r CleanupResult) Failed() int {
	return r.AdditionalFailed + r.AttachmentsFailed + countCoverFailure(r)
}

func countCoverFailure(r CleanupResult) int {
	for _, e := range r.Errors {
		if strings.HasPrefix(e, "cover: ") {
			return 1
		}
	}
	return 0
}

// CleanupImages deletes a cover image and a comma-joined list of
// additional images, collecting per-file outcomes.
func (s *AssetStore) CleanupImages(cover, additionalCSV string) CleanupResult {
	var res CleanupResult
	if cover != "" {
		if s.Delete(cover) {
			res.CoverDeleted = true
		} else {
			res.Errors = append(res.Errors, "cover: "+cover)
		}
	}
	for _, p := range SplitPathList(additionalCSV) {
		if s.Delete(p) {
			res.AdditionalDeleted++
		} else {
			res.AdditionalFailed++
			res.Errors = append(res.Errors, "additional: "+p)
		}
	}
	return res
}

// CleanupAttachments deletes attachment files into an existing result.
func (s *AssetStore) CleanupAttachments(res *CleanupResult, paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if s.Delete(p) {
			res.AttachmentsDeleted++
		} else {
			res.AttachmentsFailed++
			res.Errors = append(res.Errors, "attachment: "+p)
		}
	}
}

// SplitPathList splits a comma-joined path list, dropping blanks.
func SplitPathList(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *AssetStore) candidates(logical string) []string {
	rel := filepath.FromSlash(logical)
	out := make([]string, 0, len(s.roots)*2)
	for _, root := range s.roots {
		out = append(out, filepath.Join(root, rel))
	}
	first := logical
	if i := strings.Index(logical, "/"); i >= 0 {
		first = logical[:i]
	}
	if !isKnownSegment(first) {
		// Legacy flat layout: the type segment was not recorded.
		for _, seg := range knownSegments {
			for _, root := range s.roots {
				out = append(out, filepath.Join(root, seg, rel))
			}
		}
	} else if first == "resources" && strings.Count(logical, "/") > 1 {
		// Date-sharded resource path recorded before files were moved:
		// retry the pre-shard flat location.
		base := path.Base(logical)
		for _, root := range s.roots {
			out = append(out, filepath.Join(root, "resources", base))
		}
	}
	return out
}

func isKnownSegment(s string) bool {
	for _, seg := range knownSegments {
		if s == seg {
			return true
		}
	}
	return false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func buildFilename(kind Kind, name, ext string, now time.Time) string {
	ts := now.Format("20060102_150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if kind == KindAttachment {
		base := sanitizeBase(strings.TrimSuffix(name, filepath.Ext(name)))
		if ext != "" {
			return fmt.Sprintf("attachment_%s_%s_%s.%s", base, ts, suffix, ext)
		}
		return fmt.Sprintf("attachment_%s_%s_%s", base, ts, suffix)
	}
	return fmt.Sprintf("%s_%s_%s.%s", kind, ts, suffix, ext)
}

// sanitizeBase keeps filenames shell- and URL-safe while preserving the
// original name for display purposes.
func sanitizeBase(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
