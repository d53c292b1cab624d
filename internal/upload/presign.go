// Package upload issues presigned PUT URLs so clients can upload media
// straight to object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DefaultTTL = 5 * time.Minute

var (
	ErrContentTypeRequired = errors.New("contentType required")
	ErrNotConfigured       = errors.New("object storage not configured")
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
	TTL           time.Duration
}

// Presigner is the subset of the minio client used for signing.
type Presigner interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

type Request struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Folder      string `json:"folder"`
}

type Presigned struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Key       string `json:"key"`
}

type Service struct {
	client     Presigner
	bucket     string
	publicBase string
	ttl        time.Duration
}

// NewMinioService builds a Service backed by an S3-compatible endpoint.
// Signing happens locally; a region is set so no bucket location lookup is
// made.
func NewMinioService(cfg Config) (*Service, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}
	return NewService(client, cfg.Bucket, publicBase, cfg.TTL), nil
}

func NewService(client Presigner, bucket, publicBaseURL string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		ttl:        ttl,
	}
}

// Presign returns a URL the client can PUT the object to, and the URL it will
// be served from afterwards.
func (s *Service) Presign(ctx context.Context, req Request) (Presigned, error) {
	if strings.TrimSpace(req.ContentType) == "" {
		return Presigned{}, ErrContentTypeRequired
	}
	key := ObjectKey(req.Folder, req.Filename)

	signed, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return Presigned{}, fmt.Errorf("presign upload: %w", err)
	}
	return Presigned{
		UploadURL: signed.String(),
		PublicURL: s.publicBase + "/" + key,
		Key:       key,
	}, nil
}

// ObjectKey builds "<folder>/<uuid>[-<name>][.ext]". The folder keeps its
// segments but each one is slugged; the file name is reduced to a slug so
// keys never need escaping.
func ObjectKey(folder, filename string) string {
	var segments []string
	for _, segment := range strings.Split(folder, "/") {
		if cleaned := slug.Make(segment); cleaned != "" {
			segments = append(segments, cleaned)
		}
	}

	name := uuid.NewString()
	filename = strings.TrimSpace(filename)
	ext := strings.ToLower(path.Ext(filename))
	if base := slug.Make(strings.TrimSuffix(filename, path.Ext(filename))); base != "" {
		name += "-" + base
	}
	if ext != "" && slug.IsSlug(strings.TrimPrefix(ext, ".")) {
		name += ext
	}
	return strings.Join(append(segments, name), "/")
}
