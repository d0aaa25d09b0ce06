package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/logging"
)

const maxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageStore persists recipe images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
}

// DecodeImage parses a base64 data URI such as "data:image/png;base64,iVBOR...".
func DecodeImage(dataURI string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return nil, "", NewValidationError("image", "Upload a valid image as a base64 data URI.")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", NewValidationError("image", "Upload a valid image as a base64 data URI.")
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", NewValidationError("image", "Image must be base64 encoded.")
	}
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", NewValidationError("image", fmt.Sprintf("Unsupported image type %q.", contentType))
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", NewValidationError("image", "Image is not valid base64.")
	}
	if len(data) == 0 {
		return nil, "", NewValidationError("image", "The submitted image is empty.")
	}
	if len(data) > maxImageBytes {
		return nil, "", NewValidationError("image", "Image is larger than 5 MB.")
	}
	return data, contentType, nil
}

func imageKey(contentType string) string {
	return fmt.Sprintf("recipes/images/%s.%s", uuid.New().String(), imageExtensions[contentType])
}

// S3ImageStore uploads images to the configured bucket.
type S3ImageStore struct {
	s3Config *config.S3Config
}

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	return &S3ImageStore{s3Config: s3Config}
}

func (s *S3ImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := imageKey(contentType)
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := s.s3Config.PublicURL(key)
	logging.Ctx(ctx).Debug().Str("url", publicURL).Msg("uploaded recipe image")
	return publicURL, nil
}

// LocalImageStore writes images under a media directory served at baseURL.
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	return &LocalImageStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := imageKey(contentType)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}
