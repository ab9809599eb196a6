package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/burnoutcheck/backend/internal/config"
)

// ReportArchiver keeps a copy of every delivered report PDF.
type ReportArchiver interface {
	Archive(ctx context.Context, token string, pdf []byte) error
}

// S3Archive stores report PDFs in an S3 compatible bucket.
type S3Archive struct {
	client *s3.Client
	bucket string
}

// NewS3Archive returns nil when no archive bucket is configured.
func NewS3Archive(ctx context.Context, cfg *config.Config) (*S3Archive, error) {
	if cfg.ArchiveBucket == "" {
		return nil, nil
	}
	client, err := buildClient(ctx, cfg.ArchiveEndpoint, cfg.ArchiveRegion, cfg.ArchiveAccessKeyID, cfg.ArchiveSecretAccessKey, cfg.ArchiveUsePathStyle)
	if err != nil {
		return nil, fmt.Errorf("failed to build archive client: %w", err)
	}
	return &S3Archive{client: client, bucket: cfg.ArchiveBucket}, nil
}

func buildClient(ctx context.Context, endpoint, region, key, secret string, pathStyle bool) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// ReportKey is the object key of a session's report.
func ReportKey(token string) string {
	return fmt.Sprintf("reports/%s.pdf", token)
}

// Archive uploads the PDF under ReportKey(token).
func (a *S3Archive) Archive(ctx context.Context, token string, pdf []byte) error {
	uploader := manager.NewUploader(a.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ReportKey(token)),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", token, err)
	}
	return nil
}
