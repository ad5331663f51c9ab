package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"mime"
	"net/http"
	"strings"

	"sociallink/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 10
	MaxDimension           = 2048
	WebPQuality            = 80
)

// Key prefixes for stored images.
const (
	PrefixPosts         = "posts"
	PrefixProfileAvatar = "profile/avatar"
	PrefixProfileBanner = "profile/banner"
)

// Upload is one raw file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageProcessor validates an upload and normalizes it to a bounded WebP.
type ImageProcessor struct {
	maxBytes     int64
	maxDimension int
	quality      float32
}

// NewImageProcessor builds a processor. maxUploadSizeMB <= 0 uses the default.
func NewImageProcessor(maxUploadSizeMB int) *ImageProcessor {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return &ImageProcessor{
		maxBytes:     int64(maxUploadSizeMB) * 1024 * 1024,
		maxDimension: MaxDimension,
		quality:      WebPQuality,
	}
}

// Normalize decodes the upload, downscales it to fit MaxDimension and
// re-encodes it as WebP. Bad input yields a validation error.
func (p *ImageProcessor) Normalize(in Upload) ([]byte, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > p.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", p.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isAllowedImageMIME(provided) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	resized := resizeToFit(decoded, p.maxDimension, p.maxDimension)
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: p.quality}); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

// ImageUploader stores normalized images and cleans up after partial
// failures so no orphaned objects stay behind.
type ImageUploader struct {
	store     ObjectStore
	processor *ImageProcessor
}

func NewImageUploader(store ObjectStore, processor *ImageProcessor) *ImageUploader {
	return &ImageUploader{store: store, processor: processor}
}

// Store returns the underlying object store.
func (u *ImageUploader) Store() ObjectStore {
	return u.store
}

// NewKey builds a fresh object key under prefix.
func NewKey(prefix string) string {
	return fmt.Sprintf("%s/%s.webp", strings.TrimRight(prefix, "/"), uuid.NewString())
}

// Save normalizes and stores one image, returning its key.
func (u *ImageUploader) Save(ctx context.Context, prefix string, in Upload) (string, error) {
	data, err := u.processor.Normalize(in)
	if err != nil {
		return "", err
	}
	key := NewKey(prefix)
	if err := u.store.Put(ctx, key, data, "image/webp"); err != nil {
		return "", models.NewTransientError("Failed to store image", err)
	}
	return key, nil
}

// SaveAll stores every upload in order. On any failure the keys already
// written are deleted and the error is returned; on success the keys keep
// the order of the uploads.
func (u *ImageUploader) SaveAll(ctx context.Context, prefix string, uploads []Upload) ([]string, error) {
	keys := make([]string, 0, len(uploads))
	for _, in := range uploads {
		key, err := u.Save(ctx, prefix, in)
		if err != nil {
			DeleteAll(context.WithoutCancel(ctx), u.store, keys...)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Remove deletes keys best effort.
func (u *ImageUploader) Remove(ctx context.Context, keys ...string) {
	DeleteAll(ctx, u.store, keys...)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
