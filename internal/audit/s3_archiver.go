package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Archiver writes audit event JSON to object storage at paths like:
//
//	s3://<bucket>/<prefix>/audit/YYYY/MM/DD/<eventID>.json
//
// It implements Sink and is intended for long-term retention alongside the
// primary Postgres sink.
type S3Archiver struct {
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Archiver creates an S3Archiver. Region and credentials are resolved
// from the environment (AWS_REGION, AWS_PROFILE, AWS_ACCESS_KEY_ID/SECRET).
// The prefix may be empty.
func NewS3Archiver(ctx context.Context, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client)

	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: uploader,
	}, nil
}

func (s *S3Archiver) Append(ctx context.Context, ev *Event) error {
	if ev == nil {
		return fmt.Errorf("nil event")
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	upParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(ev)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
		// Server-side encryption with S3-managed keys (SSE-S3).
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}

	if _, err := s.uploader.Upload(ctx, upParams); err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

// ObjectKey returns the S3 object key for an event, derived from its
// timestamp and id. Useful for callers that persist the S3 pointer.
func (s *S3Archiver) ObjectKey(ev *Event) string {
	ts := time.Now().UTC()
	if !ev.TS.IsZero() {
		ts = ev.TS
	}
	year, month, day := ts.Date()
	return path.Join(s.prefix, "audit",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		fmt.Sprintf("%s.json", ev.ID),
	)
}
