package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"leadcrm/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// PayloadArchive stores raw webhook bodies in S3 for audit and replay
type PayloadArchive struct {
	s3Client s3iface.S3API
	bucket   string
	now      func() time.Time
}

// NewPayloadArchive creates an archive from S3 settings
func NewPayloadArchive(cfg config.S3Config) (*PayloadArchive, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("S3 configuration missing")
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewPayloadArchiveWithClient(s3.New(sess), cfg.Bucket), nil
}

// NewPayloadArchiveWithClient creates an archive on an existing S3 client
func NewPayloadArchiveWithClient(client s3iface.S3API, bucket string) *PayloadArchive {
	return &PayloadArchive{s3Client: client, bucket: bucket, now: time.Now}
}

// Archive uploads payload under webhooks/{channel}/{tenant}/{yyyy/mm/dd}/{uuid}.json
// and returns the object key.
func (a *PayloadArchive) Archive(ctx context.Context, channel string, tenantID uuid.UUID, payload []byte) (string, error) {
	key := a.objectKey(channel, tenantID)

	_, err := a.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (a *PayloadArchive) objectKey(channel string, tenantID uuid.UUID) string {
	return fmt.Sprintf("webhooks/%s/%s/%s/%s.json",
		channel, tenantID, a.now().UTC().Format("2006/01/02"), uuid.New())
}
