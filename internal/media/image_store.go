package media

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/segmentio/ksuid"

	"github.com/weiawesome/plantpal/pkg/storage"
)

// ImageStore keeps post images in object storage under posts/{postID}/.
// Object names are KSUIDs, so a listing of a prefix is in upload order.
type ImageStore struct {
	storage   storage.Storage
	processor *Processor
}

func NewImageStore(s storage.Storage, processor *Processor) *ImageStore {
	return &ImageStore{storage: s, processor: processor}
}

func postPrefix(postID string) string {
	return fmt.Sprintf("posts/%s/", postID)
}

// Save normalizes the image and writes it, returning its key and content type.
func (s *ImageStore) Save(ctx context.Context, postID string, data []byte, contentType string) (string, string, error) {
	img, err := s.processor.Process(data, contentType)
	if err != nil {
		return "", "", err
	}

	id, err := ksuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("image key: %w", err)
	}
	key := fmt.Sprintf("%s%s.%s", postPrefix(postID), id.String(), img.Ext)
	if err := s.storage.Write(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		return "", "", fmt.Errorf("write image: %w", err)
	}
	return key, img.ContentType, nil
}

// Open returns the stored image. The caller closes its Body.
func (s *ImageStore) Open(ctx context.Context, key string) (*storage.Object, error) {
	return s.storage.Read(ctx, key)
}

// Load reads the whole stored image.
func (s *ImageStore) Load(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.storage.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

// DeletePost removes every image stored for postID.
func (s *ImageStore) DeletePost(ctx context.Context, postID string) error {
	return s.storage.DeletePrefix(ctx, postPrefix(postID))
}

// MaxBytes is the largest upload Save accepts.
func (s *ImageStore) MaxBytes() int64 {
	return s.processor.MaxBytes()
}
