// Package s3 implements the MultipartBackend interface for AWS S3 and
// S3-compatible storage.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tmeadon/chunkvault/internal/storage"
)

// S3Config holds configuration for the S3 multipart backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Custom endpoint for MinIO or other S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool // Use path-style addressing (required for MinIO)
}

// S3Backend implements storage.MultipartBackend for AWS S3 and
// S3-compatible storage.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend creates a new S3Backend and verifies bucket access.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	var optFuncs []func(*config.LoadOptions) error

	if cfg.Region != "" {
		optFuncs = append(optFuncs, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFuncs = append(optFuncs, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFuncs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	// Verify bucket access with a HEAD request
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %q: %w", cfg.Bucket, err)
	}

	slog.Info("S3 multipart backend initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"path_style", cfg.PathStyle,
	)

	return &S3Backend{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// validateKey ensures the S3 key doesn't contain path traversal or dangerous characters.
func (b *S3Backend) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key not allowed")
	}

	// Null bytes can cause truncation issues downstream
	if strings.ContainsRune(key, '\x00') {
		return fmt.Errorf("null bytes not allowed in key")
	}

	// Reject keys that look URL-encoded to prevent double-encoding attacks
	if strings.Contains(key, "%") {
		return fmt.Errorf("encoded characters not allowed in key")
	}

	if strings.Contains(key, "..") {
		return fmt.Errorf("path traversal not allowed: %s", key)
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == "/" {
		return fmt.Errorf("invalid key: %s", key)
	}

	return nil
}

// validateTransferID ensures the transfer handle is plausible.
func (b *S3Backend) validateTransferID(transferID string) error {
	if transferID == "" {
		return fmt.Errorf("transfer ID is required")
	}
	if strings.ContainsRune(transferID, '\x00') {
		return fmt.Errorf("null bytes not allowed in transfer ID")
	}
	return nil
}

// OpenTransfer opens an S3 multipart upload for the given key.
func (b *S3Backend) OpenTransfer(ctx context.Context, key, contentType string) (string, error) {
	if err := b.validateKey(key); err != nil {
		return "", storage.NewStorageErrorWithMessage("OpenTransfer", key, err, "key validation failed")
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := b.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", storage.NewStorageError("OpenTransfer", key, err)
	}
	if result.UploadId == nil || *result.UploadId == "" {
		return "", storage.NewStorageErrorWithMessage("OpenTransfer", key, nil, "backend returned empty upload ID")
	}

	slog.Debug("multipart transfer opened",
		"key", key,
		"transfer_id", *result.UploadId,
	)

	return *result.UploadId, nil
}

// UploadPart uploads one numbered part and returns its ETag as the
// integrity tag. Part numbers are 1-based.
func (b *S3Backend) UploadPart(ctx context.Context, key, transferID string, partNumber int32, body io.Reader, size int64) (string, error) {
	if err := b.validateKey(key); err != nil {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, err, "key validation failed")
	}
	if err := b.validateTransferID(transferID); err != nil {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, err, "invalid transfer ID")
	}
	if partNumber < 1 {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, nil,
			fmt.Sprintf("part number must be positive: %d", partNumber))
	}

	input := &s3.UploadPartInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(transferID),
		PartNumber: aws.Int32(partNumber),
		Body:       body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	result, err := b.client.UploadPart(ctx, input)
	if err != nil {
		return "", storage.NewStorageError("UploadPart", key, err)
	}
	if result.ETag == nil || *result.ETag == "" {
		return "", storage.NewStorageErrorWithMessage("UploadPart", key, nil, "backend returned empty ETag")
	}

	slog.Debug("part uploaded",
		"key", key,
		"part_number", partNumber,
		"size", size,
	)

	return *result.ETag, nil
}

// CompleteTransfer finalizes the multipart upload from the ordered part list.
func (b *S3Backend) CompleteTransfer(ctx context.Context, key, transferID string, parts []storage.CompletedPart) error {
	if err := b.validateKey(key); err != nil {
		return storage.NewStorageErrorWithMessage("CompleteTransfer", key, err, "key validation failed")
	}
	if err := b.validateTransferID(transferID); err != nil {
		return storage.NewStorageErrorWithMessage("CompleteTransfer", key, err, "invalid transfer ID")
	}
	if len(parts) == 0 {
		return storage.NewStorageErrorWithMessage("CompleteTransfer", key, nil, "no parts provided")
	}

	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.IntegrityTag),
		})
	}

	_, err := b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(transferID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return storage.NewStorageError("CompleteTransfer", key, err)
	}

	slog.Debug("multipart transfer completed",
		"key", key,
		"parts", len(parts),
	)

	return nil
}

// AbortTransfer aborts an open multipart upload, discarding uploaded parts.
func (b *S3Backend) AbortTransfer(ctx context.Context, key, transferID string) error {
	if err := b.validateKey(key); err != nil {
		return storage.NewStorageErrorWithMessage("AbortTransfer", key, err, "key validation failed")
	}
	if err := b.validateTransferID(transferID); err != nil {
		return storage.NewStorageErrorWithMessage("AbortTransfer", key, err, "invalid transfer ID")
	}

	_, err := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(transferID),
	})
	if err != nil {
		return storage.NewStorageError("AbortTransfer", key, err)
	}

	slog.Debug("multipart transfer aborted", "key", key)
	return nil
}

// HealthCheck verifies that the bucket is accessible.
// Includes a 5-second timeout to prevent indefinite blocking on network issues.
func (b *S3Backend) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := b.client.HeadBucket(checkCtx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		return storage.NewStorageErrorWithMessage("HealthCheck", b.bucket, err, "S3 bucket not accessible")
	}
	return nil
}

// Ensure S3Backend implements storage.MultipartBackend
var _ storage.MultipartBackend = (*S3Backend)(nil)
