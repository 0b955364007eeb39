package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for uploaded avatars
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pollhub/internal/observability"
	"pollhub/internal/validation"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp" // register BMP decoder
	xdraw "golang.org/x/image/draw"
)

const (
	// AvatarDir is the sub-directory of the media root holding avatars.
	AvatarDir = "avatars"
	// ThumbnailSize is the edge length of the square avatar thumbnail.
	ThumbnailSize = 128
	WebPQuality   = 75
	// MaxThumbnailPixels caps the decoded size of an upload; larger images are
	// stored without a thumbnail.
	MaxThumbnailPixels = 4096 * 4096
)

var errImageTooLarge = errors.New("avatar dimensions exceed thumbnail limit")

// AvatarStore persists uploaded avatar files.
type AvatarStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Remove(relPath string)
}

// AvatarService stores avatars under the media root and renders a WebP
// thumbnail next to each one.
type AvatarService struct {
	mediaDir  string
	maxPixels int
}

// NewAvatarService returns an AvatarService rooted at mediaDir.
func NewAvatarService(mediaDir string) *AvatarService {
	return &AvatarService{mediaDir: mediaDir, maxPixels: MaxThumbnailPixels}
}

// Save copies the upload to avatars/<uuid>.<ext> and returns that relative
// path. Thumbnail failures are logged and do not fail the save.
func (s *AvatarService) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", validation.ErrAvatarFileMissing
	}
	ext := validation.AvatarExtension(fh.Filename)
	if err := validation.ValidateAvatarExtension(fh.Filename); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open avatar upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read avatar upload: %w", err)
	}

	rel := path.Join(AvatarDir, uuid.NewString()+"."+ext)
	abs := s.absPath(rel)
	if err := writeBytesToFile(abs, data); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}

	if err := s.writeThumbnail(abs, data); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "avatar thumbnail skipped",
			"path", rel, "error", err)
	}
	return rel, nil
}

// Remove deletes a stored avatar and its thumbnail. Missing files are ignored.
func (s *AvatarService) Remove(relPath string) {
	if relPath == "" {
		return
	}
	abs := s.absPath(relPath)
	_ = os.Remove(abs)
	_ = os.Remove(thumbnailPath(abs))
}

func (s *AvatarService) absPath(rel string) string {
	clean := path.Clean("/" + filepath.ToSlash(rel))
	return filepath.Join(s.mediaDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

func (s *AvatarService) writeThumbnail(abs string, data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode avatar header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(s.maxPixels) {
		return fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode avatar: %w", err)
	}
	thumb := squareThumbnail(img, ThumbnailSize)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, thumb, &webp.Options{Quality: WebPQuality}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return writeBytesToFile(thumbnailPath(abs), buf.Bytes())
}

// squareThumbnail center-crops src to a square and scales it to size.
func squareThumbnail(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	return dst
}

func thumbnailPath(abs string) string {
	return strings.TrimSuffix(abs, filepath.Ext(abs)) + "_thumb.webp"
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

var _ AvatarStore = (*AvatarService)(nil)
