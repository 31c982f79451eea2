package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"talentflow/interview-grader/internal/config"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// StorageService keeps candidate files under keys of the form
// <candidateID>/<name>.
type StorageService interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
	DeleteDir(ctx context.Context, dir string) error
}

func NewStorageService(cfg config.StorageConfig) (StorageService, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStorage(cfg.UploadPath), nil
	case "s3":
		return NewS3Storage(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// CandidateKey builds the storage key of a candidate's file.
func CandidateKey(candidateID, name string) string {
	return path.Join(candidateID, name)
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "/") {
		return "", errors.Wrap(ErrInvalidKey, key)
	}
	return cleaned, nil
}

type localStorage struct {
	uploadPath string
}

func NewLocalStorage(uploadPath string) StorageService {
	return &localStorage{uploadPath: uploadPath}
}

func (s *localStorage) Init(context.Context) error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

func (s *localStorage) filePath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.uploadPath, filepath.FromSlash(cleaned)), nil
}

// Save writes to a temp file beside the target and renames it into place,
// so readers never see a partial file.
func (s *localStorage) Save(_ context.Context, key string, r io.Reader) error {
	target, err := s.filePath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (s *localStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.filePath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *localStorage) Stat(_ context.Context, key string) (int64, error) {
	p, err := s.filePath(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrBlobNotFound
		}
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return 0, ErrBlobNotFound
	}
	return info.Size(), nil
}

func (s *localStorage) DeleteDir(_ context.Context, dir string) error {
	p, err := s.filePath(dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}

type s3Storage struct {
	client     *minio.Client
	bucketName string
}

func NewS3Storage(cfg config.S3Config) (StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.SSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &s3Storage{client: client, bucketName: cfg.BucketName}, nil
}

func (s *s3Storage) Init(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: "us-east-1"}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *s3Storage) Save(ctx context.Context, key string, r io.Reader) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, cleaned, r, -1, minio.PutObjectOptions{
		ContentType: contentTypeFor(cleaned),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *s3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		return nil, err
	}
	cleaned, _ := cleanKey(key)
	obj, err := s.client.GetObject(ctx, s.bucketName, cleaned, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

func (s *s3Storage) Stat(ctx context.Context, key string) (int64, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	info, err := s.client.StatObject(ctx, s.bucketName, cleaned, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, ErrBlobNotFound
		}
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Size, nil
}

func (s *s3Storage) DeleteDir(ctx context.Context, dir string) error {
	cleaned, err := cleanKey(dir)
	if err != nil {
		return err
	}

	objects := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    cleaned + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove object %s: %w", obj.Key, err)
		}
	}
	return nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".webm":
		return "video/webm"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
