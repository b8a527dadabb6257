package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/domain/repositories"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

const transcriptExt = ".txt"

// Object metadata keys, without the x-amz-meta- prefix
const (
	metaTitle      = "Title"
	metaLessonDate = "Lesson-Date"
)

// TranscriptStore reads captured transcripts from MinIO.
// Objects live at <prefix><transcript id>.txt.
type TranscriptStore struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ repositories.TranscriptSource = (*TranscriptStore)(nil)

// NewTranscriptStore creates a new MinIO backed transcript store
func NewTranscriptStore(cfg *config.StorageConfig) (*TranscriptStore, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &TranscriptStore{
		client: minioClient,
		bucket: cfg.BucketName,
		prefix: cfg.Prefix,
	}

	exists, err := minioClient.BucketExists(context.Background(), store.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("transcript bucket %q does not exist", store.bucket)
	}

	return store, nil
}

// ListTranscripts loads every transcript under the prefix, ordered by id
func (s *TranscriptStore) ListTranscripts(ctx context.Context) ([]entities.TranscriptDocument, error) {
	keys, err := s.listKeys(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]entities.TranscriptDocument, 0, len(keys))
	for _, key := range keys {
		doc, err := s.readTranscript(ctx, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *TranscriptStore) listKeys(ctx context.Context) ([]string, error) {
	var keys []string
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, transcriptExt) {
			keys = append(keys, object.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *TranscriptStore) readTranscript(ctx context.Context, key string) (entities.TranscriptDocument, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return entities.TranscriptDocument{}, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return entities.TranscriptDocument{}, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	raw, err := io.ReadAll(obj)
	if err != nil {
		return entities.TranscriptDocument{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	doc := entities.TranscriptDocument{
		ID:         TranscriptID(s.prefix, key),
		RawText:    string(raw),
		Title:      metadataValue(info.UserMetadata, metaTitle),
		LessonDate: info.LastModified.UTC(),
	}
	if d := metadataValue(info.UserMetadata, metaLessonDate); d != "" {
		if parsed, err := time.Parse("2006-01-02", d); err == nil {
			doc.LessonDate = parsed
		}
	}
	return doc, nil
}

// TranscriptID derives the transcript id from an object key
func TranscriptID(prefix, key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, prefix), transcriptExt)
}

// metadataValue looks a key up case-insensitively. Values are URL-decoded
// since Hebrew titles cannot travel raw in headers.
func metadataValue(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			if decoded, err := url.QueryUnescape(v); err == nil {
				return decoded
			}
			return v
		}
	}
	return ""
}
