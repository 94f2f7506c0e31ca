package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pageza/agrisoil/backend/config"
	"github.com/pageza/agrisoil/backend/internal/logger"
)

const photoPrefix = "soil-photos"

// PhotoStore persists uploaded soil photos.
type PhotoStore interface {
	// Put stores data under key and returns the URL clients use to fetch it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// PhotoKey builds a unique storage key that keeps the original extension.
func PhotoKey(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(photoPrefix, userID.String(), uuid.New().String()+ext)
}

// LocalPhotoStore writes photos under a directory served at URLPrefix.
type LocalPhotoStore struct {
	dir       string
	urlPrefix string
}

func NewLocalPhotoStore(dir, urlPrefix string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalPhotoStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalPhotoStore) Dir() string {
	return s.dir
}

func (s *LocalPhotoStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: invalid storage key %q", ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *LocalPhotoStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	return s.urlPrefix + "/" + key, nil
}

func (s *LocalPhotoStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// S3PhotoStore keeps photos in a private bucket and hands out presigned URLs.
type S3PhotoStore struct {
	s3Config  *config.S3Config
	urlExpiry time.Duration
	log       *logger.Logger
}

func NewS3PhotoStore(s3Config *config.S3Config, urlExpiry time.Duration, log *logger.Logger) *S3PhotoStore {
	if urlExpiry <= 0 {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &S3PhotoStore{s3Config: s3Config, urlExpiry: urlExpiry, log: log.With("store", "s3")}
}

func (s *S3PhotoStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url, err := s.s3Config.GeneratePresignedURL(ctx, key, s.urlExpiry)
	if err != nil {
		s.log.Warn("Failed to presign photo URL", "key", key, "error", err)
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key), nil
	}
	return url, nil
}

func (s *S3PhotoStore) Delete(ctx context.Context, key string) error {
	_, err := s.s3Config.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3Config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
