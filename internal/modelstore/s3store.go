package modelstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// sharedHTTPClient pools connections across all artifact uploads/downloads,
// mirroring storage/s3aws.go's shared transport.
var sharedHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	},
}

// S3Client is the subset of the AWS S3 SDK the store depends on, mirroring
// storage/s3_interface.go's dependency-injection seam for tests.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store adapts ArtifactStore to an S3-compatible object store, grounded
// on storage/s3aws.go's upload/download pattern (custom endpoint resolver
// for non-AWS S3-compatible backends, shared HTTP client, uploader for
// large artifacts).
type S3Store struct {
	client S3Client
	bucket string
}

// S3Config configures the S3-compatible endpoint backing an S3Store.
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewS3Store configures an S3-compatible client from cfg. An empty Endpoint
// resolves against native AWS; a non-empty one (MinIO, Hetzner, etc.)
// activates the custom endpoint resolver used throughout storage/s3aws.go.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		optFns = append(optFns, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint, SigningRegion: region, HostnameImmutable: true}, nil
			})))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load s3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.HTTPClient = sharedHTTPClient
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Persist uploads artifact under a key derived from family/version and
// returns that key as the opaque handle.
func (s *S3Store) Persist(ctx context.Context, artifact []byte, family, version string) (string, error) {
	key := fmt.Sprintf("%s/%s/%d.model", family, version, time.Now().UnixNano())

	uploader := manager.NewUploader(&s3Uploader{s.client})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(artifact),
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact %s: %w", key, err)
	}
	return key, nil
}

// Load downloads the artifact at handle along with its last-modified Unix
// timestamp, used by the in-memory ModelCache to detect replacement of an
// artifact under the same handle.
func (s *S3Store) Load(ctx context.Context, handle string) ([]byte, int64, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(handle)})
	if err != nil {
		return nil, 0, fmt.Errorf("head artifact %s: %w", handle, err)
	}
	lastModified := int64(0)
	if head.LastModified != nil {
		lastModified = head.LastModified.Unix()
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(handle)})
	if err != nil {
		return nil, 0, fmt.Errorf("get artifact %s: %w", handle, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read artifact %s: %w", handle, err)
	}
	return data, lastModified, nil
}

// s3Uploader narrows S3Client down to the interface manager.Uploader needs,
// letting tests inject a mock S3Client without also implementing the wider
// *s3.Client API surface.
type s3Uploader struct {
	client S3Client
}

func (u *s3Uploader) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return u.client.PutObject(ctx, params, optFns...)
}

var _ ArtifactStore = (*S3Store)(nil)
