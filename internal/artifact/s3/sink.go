// Package s3 stores exported documents in an S3-compatible bucket
// (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"brdwizard/internal/artifact"
	brdconfig "brdwizard/internal/config"
	"brdwizard/internal/export"
	"brdwizard/internal/logging"
)

var _ artifact.Sink = (*Sink)(nil)

// Sink writes artifacts as objects under a key prefix in one bucket.
type Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds explicit construction parameters. Credentials fall back to
// the default AWS chain when the key pair is empty.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. a MinIO URL
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// FromSettings converts the export s3 settings.
func FromSettings(c brdconfig.S3Config) Config {
	return Config{
		Bucket:    c.Bucket,
		Region:    c.Region,
		Endpoint:  c.Endpoint,
		Prefix:    c.Prefix,
		PathStyle: c.PathStyle,
	}
}

// New creates a Sink. optFns adjust the client, e.g. its HTTP transport.
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &Sink{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Open adapts New to artifact.Opener.
func Open(ctx context.Context, c brdconfig.S3Config) (artifact.Sink, error) {
	return New(ctx, FromSettings(c))
}

func (s *Sink) Driver() artifact.Driver { return artifact.DriverS3 }

// Key returns the object key for an artifact name.
func (s *Sink) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads art, replacing any object with the same key, and returns its
// s3:// location.
func (s *Sink) Put(ctx context.Context, art export.Artifact) (string, error) {
	if strings.TrimSpace(art.Name) == "" {
		return "", fmt.Errorf("empty artifact name")
	}
	key := s.Key(art.Name)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(art.Body),
		ContentLength: aws.Int64(int64(len(art.Body))),
		Metadata:      map[string]string{"pages": fmt.Sprintf("%d", art.Pages)},
	}
	if art.ContentType != "" {
		input.ContentType = aws.String(art.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		logging.ExportError("Upload of %s to bucket %s failed: %v", key, s.bucket, err)
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	loc := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	logging.Export("Uploaded %s (%d bytes)", loc, len(art.Body))
	return loc, nil
}
