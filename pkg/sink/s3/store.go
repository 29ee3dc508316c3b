// Package s3 stores artifacts in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/sink"
)

// deleteBatchSize is the DeleteObjects per-request limit.
const deleteBatchSize = 1000

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Config holds configuration for the S3 sink.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region (optional, uses default if empty).
	Region string

	// Endpoint is a custom endpoint for S3-compatible services (optional).
	Endpoint string

	// KeyPrefix is prepended to every key.
	KeyPrefix string

	// ForcePathStyle forces path-style addressing (required for MinIO, Localstack).
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey select static credentials. When
	// empty the default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// Store is an S3-backed sink.Sink.
type Store struct {
	client    API
	bucket    string
	keyPrefix string

	mu     sync.RWMutex
	closed bool
}

// New creates a Store around an existing client.
func New(client API, cfg Config) *Store {
	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Store{client: client, bucket: cfg.Bucket, keyPrefix: prefix}
}

// NewFromConfig builds an S3 client from cfg and returns a Store.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return New(client, cfg), nil
}

func (s *Store) fullKey(key string) (string, error) {
	k, err := sink.CleanKey(key)
	if err != nil {
		return "", err
	}
	return s.keyPrefix + k, nil
}

// Put implements sink.Sink. PutObject is atomic per object.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanSinkPut,
		telemetry.StoreType("s3"), telemetry.Bucket(s.bucket),
		telemetry.StorageKey(key), telemetry.Size(len(data)))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return sink.ErrClosed
	}

	k, err := s.fullKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("put object %s: %w", k, err)
	}
	return nil
}

// Exists implements sink.Sink.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, sink.ErrClosed
	}

	k, err := s.fullKey(key)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", k, err)
	}
	return true, nil
}

// DeleteByPrefix implements sink.Sink.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return sink.ErrClosed
	}

	p, err := s.fullKey(prefix)
	if err != nil {
		return err
	}
	p = strings.TrimSuffix(p, "/") + "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(p),
	})

	var batch []types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		batch = batch[:0]
		if err != nil {
			return fmt.Errorf("delete objects under %s: %w", p, err)
		}
		return nil
	}

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects under %s: %w", p, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

// HealthCheck verifies the bucket is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Describe implements sink.Sink.
func (s *Store) Describe() string {
	return "s3://" + s.bucket + "/" + s.keyPrefix
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	// HeadObject surfaces a bare 404 on some S3-compatible services.
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") ||
		strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "404")
}

var _ sink.Sink = (*Store)(nil)
