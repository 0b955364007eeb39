package service

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pollhub/internal/testutil"
	"pollhub/internal/validation"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarService_SaveWritesFileAndThumbnail(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name    string
		content []byte
	}{
		{"me.png", testutil.TinyPNG(t, 300, 200)},
		{"me.JPG", testutil.TinyJPEG(t, 64, 64)},
		{"me.bmp", testutil.TinyBMP(t, 40, 90)},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			svc := NewAvatarService(dir)

			rel, err := svc.Save(context.Background(), testutil.FileHeader(t, tc.name, tc.content))
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(rel, "avatars/"))
			assert.Equal(t, "."+validation.AvatarExtension(tc.name), filepath.Ext(rel))

			stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
			require.NoError(t, err)
			assert.Equal(t, tc.content, stored)

			thumbFile, err := os.Open(thumbnailPath(filepath.Join(dir, filepath.FromSlash(rel))))
			require.NoError(t, err)
			defer thumbFile.Close()
			thumb, err := webp.Decode(thumbFile)
			require.NoError(t, err)
			assert.Equal(t, ThumbnailSize, thumb.Bounds().Dx())
			assert.Equal(t, ThumbnailSize, thumb.Bounds().Dy())
		})
	}
}

func TestAvatarService_UndecodableImageStillSaved(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	svc := NewAvatarService(dir)

	rel, err := svc.Save(context.Background(), testutil.FileHeader(t, "broken.png", []byte("not an image")))
	require.NoError(t, err)

	abs := filepath.Join(dir, filepath.FromSlash(rel))
	_, err = os.Stat(abs)
	assert.NoError(t, err)
	_, err = os.Stat(thumbnailPath(abs))
	assert.True(t, os.IsNotExist(err))
}

// pngWithDimensions rewrites the IHDR size of a small PNG so the header
// claims w x h pixels while the file stays tiny.
func pngWithDimensions(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := append([]byte(nil), testutil.TinyPNG(t, 4, 4)...)
	require.Equal(t, "IHDR", string(data[12:16]))
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestAvatarService_OversizedDimensionsSkipThumbnail(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	svc := NewAvatarService(dir)

	huge := pngWithDimensions(t, 12000, 12000)
	require.Less(t, len(huge), 1024)

	err := svc.writeThumbnail(filepath.Join(dir, "avatars", "huge.png"), huge)
	assert.ErrorIs(t, err, errImageTooLarge)

	rel, err := svc.Save(context.Background(), testutil.FileHeader(t, "huge.png", huge))
	require.NoError(t, err)
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	_, err = os.Stat(abs)
	assert.NoError(t, err)
	_, err = os.Stat(thumbnailPath(abs))
	assert.True(t, os.IsNotExist(err))
}

func TestAvatarService_PixelLimit(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	svc := NewAvatarService(dir)
	assert.Equal(t, MaxThumbnailPixels, svc.maxPixels)
	svc.maxPixels = 20 * 20

	small, err := svc.Save(context.Background(), testutil.FileHeader(t, "small.png", testutil.TinyPNG(t, 20, 20)))
	require.NoError(t, err)
	_, err = os.Stat(thumbnailPath(filepath.Join(dir, filepath.FromSlash(small))))
	assert.NoError(t, err, "an image at the limit gets a thumbnail")

	big, err := svc.Save(context.Background(), testutil.FileHeader(t, "big.png", testutil.TinyPNG(t, 21, 20)))
	require.NoError(t, err)
	_, err = os.Stat(thumbnailPath(filepath.Join(dir, filepath.FromSlash(big))))
	assert.True(t, os.IsNotExist(err))
}

func TestAvatarService_Rejects(t *testing.T) {
	t.Parallel()
	svc := NewAvatarService(t.TempDir())

	_, err := svc.Save(context.Background(), nil)
	assert.ErrorIs(t, err, validation.ErrAvatarFileMissing)

	_, err = svc.Save(context.Background(), testutil.FileHeader(t, "script.gif", []byte("GIF89a")))
	assert.ErrorIs(t, err, validation.ErrAvatarExtension)
}

func TestAvatarService_Remove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	svc := NewAvatarService(dir)

	rel, err := svc.Save(context.Background(), testutil.FileHeader(t, "me.png", testutil.TinyPNG(t, 8, 8)))
	require.NoError(t, err)
	abs := filepath.Join(dir, filepath.FromSlash(rel))

	svc.Remove(rel)
	_, err = os.Stat(abs)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(thumbnailPath(abs))
	assert.True(t, os.IsNotExist(err))

	svc.Remove("")
	svc.Remove("../../etc/passwd")
}

func TestAvatarService_AbsPathStaysInsideMediaDir(t *testing.T) {
	t.Parallel()
	svc := NewAvatarService("/srv/media")
	assert.Equal(t, filepath.Join("/srv/media", "etc", "passwd"), svc.absPath("../../etc/passwd"))
}
