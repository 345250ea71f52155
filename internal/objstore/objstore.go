// Package objstore stores message and profile images and hands back
// stable retrieval URLs.
package objstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/lmarchetti/sidechat/internal/apperr"
)

// MaxImageBytes caps uploads at 5MB.
const MaxImageBytes = 5 << 20

// Store accepts an image payload and returns a retrieval URL; deletion
// is by that URL.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DecodeDataURL parses a base64 data URL ("data:image/png;base64,...")
// into raw bytes and a content type. Only images are accepted.
func DecodeDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(s, "data:image/") {
		return nil, "", apperr.InvalidArg("invalid image format")
	}

	meta, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, "", apperr.InvalidArg("invalid image format")
	}

	contentType := strings.TrimPrefix(meta, "data:")
	contentType, _, _ = strings.Cut(contentType, ";")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", apperr.InvalidArg("invalid base64 image data")
	}

	if len(data) > MaxImageBytes {
		return nil, "", apperr.InvalidArg("image size exceeds 5MB limit")
	}
	return data, contentType, nil
}

// ExtFromContentType picks a file extension for the stored object.
func ExtFromContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return ".bin"
	}
}

func objectName(name, contentType string) string {
	return fmt.Sprintf("%s%s", name, ExtFromContentType(contentType))
}
