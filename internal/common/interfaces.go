package common

import (
	"context"
	"io"
	"time"
)

// BlobStore keeps profile photos addressed by filename.
type BlobStore interface {
	Save(ctx context.Context, filename, mimeType, ownerID string, content io.Reader) (*BlobInfo, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, *BlobInfo, error)
	Delete(ctx context.Context, filename string) error
}

type BlobInfo struct {
	ID         string        `json:"id"`
	Filename   string        `json:"filename"`
	MimeType   string        `json:"mime_type"`
	Size       int64         `json:"size"`
	FileType   MediaFileType `json:"file_type"`
	UploadedBy string        `json:"uploaded_by"`
	UploadedAt time.Time     `json:"uploaded_at"`
}
