// Package archive keeps copies of signed contract PDFs, locally and optionally
// in an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/kingrea/contract-wizard/internal/config"
	"github.com/kingrea/contract-wizard/internal/contract"
)

const (
	pdfContentType = "application/pdf"
	presignExpiry  = 7 * 24 * time.Hour
)

// ErrNotSigned is returned when archiving a contract that is not fully signed.
var ErrNotSigned = errors.New("archive: contract is not fully signed")

// ObjectStore is the subset of bucket operations the archive needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, meta map[string]string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Result describes where a document was archived.
type Result struct {
	LocalPath string
	ObjectKey string
	URL       string
}

// Archiver writes signed PDFs to disk and, when configured, to a bucket.
type Archiver struct {
	dir    string
	remote ObjectStore
	logger *zap.Logger
}

// Option customises an Archiver.
type Option func(*Archiver)

// WithObjectStore enables remote archiving.
func WithObjectStore(store ObjectStore) Option {
	return func(a *Archiver) { a.remote = store }
}

// WithLogger attaches a diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Archiver) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Archiver writing local copies under dir.
func New(dir string, opts ...Option) *Archiver {
	a := &Archiver{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FromConfig builds an Archiver from the project configuration. The bucket is
// only used when archive.enabled is set.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*Archiver, error) {
	opts := []Option{WithLogger(logger)}
	if cfg.Project.Archive.Enabled {
		store, err := NewMinioStore(cfg.Project.Archive)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithObjectStore(store))
	}
	return New(cfg.ArchiveDir(), opts...), nil
}

// Remote reports whether a bucket is configured.
func (a *Archiver) Remote() bool {
	return a.remote != nil
}

// Archive stores the signed PDF of c.
func (a *Archiver) Archive(ctx context.Context, c *contract.Contract, pdf []byte) (Result, error) {
	if c == nil || c.ID == "" {
		return Result{}, fmt.Errorf("archive: contract is required")
	}
	if !c.Status.Signed() {
		return Result{}, fmt.Errorf("archive %s (%s): %w", c.ID, c.Status, ErrNotSigned)
	}
	if len(pdf) == 0 {
		return Result{}, fmt.Errorf("archive %s: document is empty", c.ID)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("archive: ensure dir: %w", err)
	}
	res := Result{LocalPath: filepath.Join(a.dir, FileName(c))}
	if err := os.WriteFile(res.LocalPath, pdf, 0o644); err != nil {
		return Result{}, fmt.Errorf("archive: write %s: %w", res.LocalPath, err)
	}
	if a.remote == nil {
		return res, nil
	}

	if err := a.remote.EnsureBucket(ctx); err != nil {
		return res, err
	}
	res.ObjectKey = ObjectKey(c)
	meta := map[string]string{
		"contract-id":   c.ID,
		"contract-type": c.ContractType,
		"status":        string(c.Status),
	}
	if err := a.remote.Put(ctx, res.ObjectKey, bytes.NewReader(pdf), int64(len(pdf)), meta); err != nil {
		return res, err
	}
	url, err := a.remote.PresignedURL(ctx, res.ObjectKey, presignExpiry)
	if err != nil {
		a.logger.Warn("presign failed", zap.String("key", res.ObjectKey), zap.Error(err))
	} else {
		res.URL = url
	}
	a.logger.Info("signed contract archived",
		zap.String("contract_id", c.ID),
		zap.String("key", res.ObjectKey),
	)
	return res, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the local file name for a signed contract.
func FileName(c *contract.Contract) string {
	return unsafeChars.ReplaceAllString(c.ID, "_") + "-signed.pdf"
}

// ObjectKey groups archived contracts by the month they were last updated.
func ObjectKey(c *contract.Contract) string {
	when := c.UpdatedAt
	if when.IsZero() {
		when = c.CreatedAt
	}
	prefix := "undated"
	if !when.IsZero() {
		prefix = when.UTC().Format("2006/01")
	}
	return fmt.Sprintf("contracts/%s/%s", prefix, FileName(c))
}

// MinioStore is an ObjectStore backed by minio-go.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the configured endpoint.
func NewMinioStore(cfg config.ArchiveConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: endpoint and bucket: %w", config.ErrNotConfigured)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("archive: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("archive: create bucket: %w", err)
	}
	return nil
}

// Put uploads a PDF.
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, meta map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  pdfContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}
	return nil
}

// PresignedURL returns a temporary download link.
func (s *MinioStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("archive: presign %s: %w", key, err)
	}
	return u.String(), nil
}
