package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatr/internal/common"
)

// MediaStorage is the GridFS backed common.BlobStore. Blobs are addressed by
// filename; a name maps to at most one file unless an upload raced.
type MediaStorage struct {
	gridFS *gridfs.Bucket
	now    func() time.Time
}

var _ common.BlobStore = (*MediaStorage)(nil)

func NewMediaStorage(mongoClient *MongoClient) *MediaStorage {
	return &MediaStorage{
		gridFS: mongoClient.GridFS,
		now:    time.Now,
	}
}

// storedFile mirrors a fs.files document.
type storedFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Name       string             `bson:"filename"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Metadata   bson.Raw           `bson:"metadata"`
}

func blobMetadata(fileType common.MediaFileType, mimeType, ownerID string, at time.Time) bson.M {
	return bson.M{
		"file_type":   fileType.String(),
		"mime_type":   mimeType,
		"uploaded_by": ownerID,
		"uploaded_at": at,
	}
}

func (ms *MediaStorage) Save(ctx context.Context, filename, mimeType, ownerID string, content io.Reader) (*common.BlobInfo, error) {
	fileType := common.DetectFileType(mimeType)
	now := ms.now()

	opts := options.GridFSUpload().SetMetadata(blobMetadata(fileType, mimeType, ownerID, now))
	stream, err := ms.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: upload failed: %v", common.ErrPersistence, err)
	}

	size, err := io.Copy(stream, content)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("%w: file copy failed: %v", common.ErrPersistence, err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("%w: upload failed: %v", common.ErrPersistence, err)
	}

	id := ""
	if oid, ok := stream.FileID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}

	return &common.BlobInfo{
		ID:         id,
		Filename:   filename,
		MimeType:   mimeType,
		Size:       size,
		FileType:   fileType,
		UploadedBy: ownerID,
		UploadedAt: now,
	}, nil
}

// Open streams the newest revision stored under filename.
func (ms *MediaStorage) Open(ctx context.Context, filename string) (io.ReadCloser, *common.BlobInfo, error) {
	stream, err := ms.gridFS.OpenDownloadStreamByName(filename)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", common.ErrNotFound, filename)
		}
		return nil, nil, fmt.Errorf("%w: download failed: %v", common.ErrPersistence, err)
	}

	file := stream.GetFile()
	info := blobInfo(file.ID, file.Name, file.Length, file.UploadDate, file.Metadata)
	return stream, info, nil
}

// Delete removes every file stored under filename.
func (ms *MediaStorage) Delete(ctx context.Context, filename string) error {
	cursor, err := ms.gridFS.FindContext(ctx, bson.M{"filename": filename})
	if err != nil {
		return fmt.Errorf("%w: find blob: %v", common.ErrPersistence, err)
	}

	var files []storedFile
	if err := cursor.All(ctx, &files); err != nil {
		return fmt.Errorf("%w: find blob: %v", common.ErrPersistence, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: %s", common.ErrNotFound, filename)
	}

	for _, f := range files {
		if err := ms.gridFS.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("%w: delete blob: %v", common.ErrPersistence, err)
		}
	}
	return nil
}

func blobInfo(id interface{}, name string, length int64, uploaded time.Time, raw bson.Raw) *common.BlobInfo {
	var metadata bson.M
	if len(raw) > 0 {
		_ = bson.Unmarshal(raw, &metadata)
	}

	info := &common.BlobInfo{
		Filename:   name,
		Size:       length,
		MimeType:   getStringFromMap(metadata, "mime_type"),
		FileType:   common.MediaFileType(getStringFromMap(metadata, "file_type")),
		UploadedBy: getStringFromMap(metadata, "uploaded_by"),
		UploadedAt: uploaded,
	}
	if oid, ok := id.(primitive.ObjectID); ok {
		info.ID = oid.Hex()
	}
	if info.MimeType == "" {
		info.MimeType = common.ContentTypeForFilename(name)
	}
	if info.FileType == "" {
		info.FileType = common.DetectFileType(info.MimeType)
	}
	return info
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
