package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors surfaced through StoreError for callers that branch on
// the failure class.
var (
	ErrNotFound           = errors.New("object not found")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultAWSRegion is the fallback region when none is resolved from config
// or environment and no custom endpoint is set.
const DefaultAWSRegion = "us-east-1"

// S3Config configures an S3 artifact store.
//
// Authentication follows AWS SDK v2's default chain unless explicit
// AccessKeyID/SecretAccessKey are provided. For S3-compatible stores
// (MinIO, Wasabi), set Endpoint and typically ForcePathStyle.
type S3Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// Prefix is prepended to every key. Useful for sharing a bucket
	// across deployments.
	Prefix string

	// Region is the AWS region. Defaults to us-east-1 for AWS S3 when not
	// resolved from environment or profile. No default when Endpoint is set.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string

	// Profile is the AWS profile name from shared config.
	Profile string

	// AccessKeyID and SecretAccessKey are explicit credentials. If one is
	// set, both must be set.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs. Required for most
	// S3-compatible stores.
	ForcePathStyle bool
}

// Validate checks that required configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 config: bucket name is required")
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return errors.New("s3 config: both access key ID and secret access key must be provided together")
	}
	return nil
}

// S3Store implements Store on AWS S3 and S3-compatible storage.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// NewS3 creates an S3 artifact store.
func NewS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &StoreError{Op: "New", Err: err}
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg S3Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	if awsCfg.Region == "" && cfg.Endpoint == "" {
		awsCfg.Region = DefaultAWSRegion
	}

	return awsCfg, nil
}

// Put uploads the local file at localPath under key.
func (s *S3Store) Put(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return &StoreError{Op: "Put", Key: key, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return &StoreError{Op: "Put", Key: key, Err: err}
	}
	size := info.Size()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(key)),
		Body:          f,
		ContentLength: &size,
	})
	if err != nil {
		return s.wrapError("Put", key, err)
	}
	return nil
}

// Get downloads the object at key to localPath.
func (s *S3Store) Get(ctx context.Context, key, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return s.wrapError("Get", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return &StoreError{Op: "Get", Key: key, Err: err}
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return &StoreError{Op: "Get", Key: key, Err: err}
	}
	if err := f.Close(); err != nil {
		return &StoreError{Op: "Get", Key: key, Err: err}
	}
	return nil
}

// Close releases resources. The S3 client requires no explicit cleanup.
func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// wrapError converts S3 errors to store errors with sentinel classification.
func (s *S3Store) wrapError(op, key string, err error) error {
	wrapped := &StoreError{Op: op, Key: key, Err: err}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = ErrInvalidCredentials
		}
	}
	return wrapped
}
