package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

type MinioConfig struct {
	Endpoint    string
	Region      string
	Bucket      string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// Minio talks to any S3-compatible store through presigned URLs.
type Minio struct {
	cl          *minio.Client
	bucket      string
	region      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
	l           *log.Entry
}

func NewMinio(cfg MinioConfig, l *log.Entry) (*Minio, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("can't create s3 client: %w", err)
	}
	return &Minio{
		cl:          cl,
		bucket:      cfg.Bucket,
		region:      cfg.Region,
		uploadTTL:   cfg.UploadTTL,
		downloadTTL: cfg.DownloadTTL,
		l:           l.WithFields(log.Fields{"backend": "minio", "bucket": cfg.Bucket}),
	}, nil
}

func (m *Minio) UploadSlot(ctx context.Context) (Slot, error) {
	ref := newRef()
	u, err := m.cl.PresignedPutObject(ctx, m.bucket, ref, m.uploadTTL)
	if err != nil {
		return Slot{}, fmt.Errorf("can't presign upload: %w", err)
	}
	return Slot{URL: u.String(), Ref: ref}, nil
}

func (m *Minio) Stat(ctx context.Context, ref string) error {
	if _, err := m.cl.StatObject(ctx, m.bucket, ref, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrObjectNotFound
		}
		m.l.WithField("storage_ref", ref).WithError(err).Debug("stat failed")
		return fmt.Errorf("can't stat object: %w", err)
	}
	return nil
}

func (m *Minio) PresignDownload(ctx context.Context, ref string) (string, error) {
	u, err := m.cl.PresignedGetObject(ctx, m.bucket, ref, m.downloadTTL, nil)
	if err != nil {
		return "", fmt.Errorf("can't presign download: %w", err)
	}
	return u.String(), nil
}

// EnsureBucket creates the bucket on first start.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.cl.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	m.l.Info("creating bucket")
	return m.cl.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region})
}
