// Package media stores verification documents. Images arrive either as
// data URIs or as URLs that were uploaded elsewhere.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader stores an image and returns the URL to keep on the record.
type Uploader interface {
	Upload(ctx context.Context, folder, image string) (string, error)
}

// Passthrough keeps images as submitted. Used when no image host is set up.
type Passthrough struct{}

func (Passthrough) Upload(ctx context.Context, folder, image string) (string, error) {
	return image, nil
}

type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudURL string) (Uploader, error) {
	cld, err := cloudinary.NewFromURL(cloudURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &cloudinaryUploader{cld: cld}, nil
}

// Upload sends data URIs to Cloudinary. Anything else is already hosted and
// is returned unchanged.
func (u *cloudinaryUploader) Upload(ctx context.Context, folder, image string) (string, error) {
	if !IsDataURI(image) {
		return image, nil
	}
	res, err := u.cld.Upload.Upload(ctx, image, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload rejected: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// IsDataURI reports whether s is an inline base64 image.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}

// Acceptable reports whether s is empty, an inline image or an http(s) URL.
func Acceptable(s string) bool {
	return s == "" || IsDataURI(s) || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
