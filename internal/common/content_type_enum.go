package common

import (
	"path/filepath"
	"strings"
)

// MediaFileType classifies uploaded blobs.
type MediaFileType string

const (
	MediaFileTypeImage   MediaFileType = "image"
	MediaFileTypeUnknown MediaFileType = "unknown"
)

// String returns the string representation
func (mft MediaFileType) String() string {
	return string(mft)
}

// IsValid reports whether the type may be stored as a profile photo
func (mft MediaFileType) IsValid() bool {
	return mft == MediaFileTypeImage
}

func DetectFileType(mimeType string) MediaFileType {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return MediaFileTypeImage
	}
	return MediaFileTypeUnknown
}

// ContentTypeForFilename picks the response Content-Type from the extension.
func ContentTypeForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
