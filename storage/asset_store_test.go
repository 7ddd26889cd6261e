package storage

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestPutStoresImageUnderDateShard(t *testing.T) {
	store := NewAssetStore(t.TempDir())

	res, err := store.Put(bytes.NewReader([]byte("png-bytes")), "photo.PNG", KindCover)
	require.NoError(t, err)

	assert.Regexp(t, `^forum_images/\d{4}/\d{2}/cover_\d{8}_\d{6}_[0-9a-f]{8}\.png$`, res.Path)
	assert.Equal(t, int64(9), res.Size)

	phys, err := store.Resolve(res.Path)
	require.NoError(t, err)
	data, err := os.ReadFile(phys)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestPutAttachmentKeepsOriginalBaseName(t *testing.T) {
	store := NewAssetStore(t.TempDir())

	res, err := store.Put(bytes.NewReader([]byte("%PDF-1.4")), "mock exam (2).pdf", KindAttachment)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Path, "attachments/"))
	assert.Contains(t, res.Filename, "attachment_mock_exam__2_")
	assert.True(t, strings.HasSuffix(res.Filename, ".pdf"))
}

func TestPutRejectsBadInput(t *testing.T) {
	store := NewAssetStore(t.TempDir())

	_, err := store.Put(bytes.NewReader(nil), "", KindCover)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = store.Put(bytes.NewReader([]byte("x")), "notes.pdf", KindCover)
	assert.ErrorIs(t, err, ErrFileType)

	_, err = store.Put(bytes.NewReader([]byte("x")), "shell.png.exe", KindAdditional)
	assert.ErrorIs(t, err, ErrFileType)
}

func TestPutEnforcesSizeCap(t *testing.T) {
	root := t.TempDir()
	store := NewAssetStore(root)
	store.SetMaxSize(10)

	_, err := store.Put(bytes.NewReader(bytes.Repeat([]byte("a"), 11)), "big.png", KindCover)

	var tooLarge *PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(10), tooLarge.Limit)
	assert.Equal(t, 0, countFiles(t, root), "oversized upload must not leave a partial file")
}

func TestResolveFallsBackToLegacyLayouts(t *testing.T) {
	root := t.TempDir()
	legacy := t.TempDir()
	store := NewAssetStore(root, legacy)

	// Flat path recorded without a segment prefix.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "forum_images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "forum_images", "old.png"), []byte("a"), 0o644))
	phys, err := store.Resolve("old.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "forum_images", "old.png"), phys)

	// Asset left behind by an earlier deployment root.
	require.NoError(t, os.MkdirAll(filepath.Join(legacy, "attachments"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(legacy, "attachments", "doc.pdf"), []byte("b"), 0o644))
	phys, err = store.Resolve("attachments/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(legacy, "attachments", "doc.pdf"), phys)

	// Date-sharded resource path recorded before files were moved.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "resources"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "resources", "flat.png"), []byte("c"), 0o644))
	phys, err = store.Resolve("resources/2024/01/flat.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "resources", "flat.png"), phys)

	_, err = store.Resolve("forum_images/2024/01/missing.png")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestDeleteIsIdempotent(t *testing.T) {
	root := t.TempDir()
	store := NewAssetStore(root)

	res, err := store.Put(bytes.NewReader([]byte("x")), "gone.png", KindCover)
	require.NoError(t, err)

	assert.True(t, store.Delete(res.Path))
	assert.Equal(t, 0, countFiles(t, root))

	// Absent everywhere counts as already deleted.
	assert.True(t, store.Delete(res.Path))
	assert.True(t, store.Delete("forum_images/2024/01/never-existed.png"))
}

func TestDeleteSkipsExternalURLsAndBlanks(t *testing.T) {
	store := NewAssetStore(t.TempDir())

	assert.True(t, store.Delete(""))
	assert.True(t, store.Delete("   "))
	assert.True(t, store.Delete("https://cdn.example.com/cover.png"))
	assert.True(t, store.Delete("http://cdn.example.com/cover.png"))
}

func TestCleanupImagesCountsOutcomes(t *testing.T) {
	root := t.TempDir()
	store := NewAssetStore(root)

	cover, err := store.Put(bytes.NewReader([]byte("c")), "cover.png", KindResourceCover)
	require.NoError(t, err)
	extra1, err := store.Put(bytes.NewReader([]byte("1")), "one.png", KindResourceAdditional)
	require.NoError(t, err)
	extra2, err := store.Put(bytes.NewReader([]byte("2")), "two.png", KindResourceAdditional)
	require.NoError(t, err)

	csv := extra1.Path + "," + extra2.Path + ", ,resources/2020/01/long-gone.png"
	res := store.CleanupImages(cover.Path, csv)

	assert.True(t, res.CoverDeleted)
	assert.Equal(t, 3, res.AdditionalDeleted)
	assert.Equal(t, 0, res.Failed())
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, countFiles(t, root))
}

func TestCleanupAttachmentsAppendsToResult(t *testing.T) {
	store := NewAssetStore(t.TempDir())

	att, err := store.Put(bytes.NewReader([]byte("d")), "doc.pdf", KindAttachment)
	require.NoError(t, err)

	var res CleanupResult
	store.CleanupAttachments(&res, []string{att.Path, "", "attachments/missing.pdf"})

	assert.Equal(t, 2, res.AttachmentsDeleted)
	assert.Equal(t, 0, res.AttachmentsFailed)
}

func TestSplitPathList(t *testing.T) {
	assert.Nil(t, SplitPathList(""))
	assert.Nil(t, SplitPathList("  "))
	assert.Equal(t, []string{"a.png", "b.png"}, SplitPathList("a.png, b.png,,  "))
}
