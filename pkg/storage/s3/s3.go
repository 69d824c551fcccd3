// Package s3 implements the S3-compatible object storage adapter.
// It supports AWS S3, Aliyun OSS, MinIO and other S3-compatible services.
// Containers map onto buckets; a file read token is the query string of a
// presigned GET request.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"
)

// DefaultPresignExpiry is the default expiry time for presigned tokens.
const DefaultPresignExpiry = time.Hour

// Config holds S3 storage configuration.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool // Use path-style URLs (required for MinIO and for host/container/blob URLs)
	TokenTTL  time.Duration
}

// Storage implements the storage.Storage interface using S3-compatible storage.
type Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	ttl           time.Duration
	now           func() time.Time
}

// New creates a new S3 storage adapter.
func New(cfg Config) (*Storage, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("access key and secret key are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultPresignExpiry
	}

	var optFns []func(*config.LoadOptions) error

	optFns = append(optFns, config.WithRegion(cfg.Region))
	optFns = append(optFns, config.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	))

	awsCfg, err := config.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3OptFns []func(*s3.Options)

	if cfg.Endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	if cfg.PathStyle {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3OptFns...)

	return &Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		ttl:           cfg.TokenTTL,
		now:           time.Now,
	}, nil
}

// PutObject uploads a blob to S3.
func (s *Storage) PutObject(ctx context.Context, container, key string, data io.Reader, contentType string, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(container),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	}

	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	return nil
}

// GetObject retrieves a blob from S3.
func (s *Storage) GetObject(ctx context.Context, container, key string) (io.ReadCloser, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	return output.Body, nil
}

// DeleteObject removes a blob from S3.
func (s *Storage) DeleteObject(ctx context.Context, container, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

// ObjectExists checks if a blob exists in S3.
func (s *Storage) ObjectExists(ctx context.Context, container, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("head object: %w", err)
	}

	return true, nil
}

// MintTokens presigns a GET for every named blob and keeps the query string
// as the token. Container scoped tokens have no S3 equivalent.
func (s *Storage) MintTokens(ctx context.Context, container string, scope sas.Scope, names []string) (*sas.Grant, error) {
	if scope != sas.ScopeFile {
		return nil, fmt.Errorf("%w: %s", sas.ErrScopeUnsupported, scope)
	}
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}

	generated := s.now().UTC()
	grant := &sas.Grant{
		ReadTokens:  make(map[string]string, len(names)),
		GeneratedAt: generated,
		ExpiresOn:   generated.Add(s.ttl),
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(container),
			Key:    aws.String(name),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = s.ttl
		})
		if err != nil {
			return nil, fmt.Errorf("presign %s/%s: %w", container, name, err)
		}
		token, err := queryToken(req.URL)
		if err != nil {
			return nil, err
		}
		grant.ReadTokens[name] = token
	}
	return grant, nil
}

// Type returns "s3" as the storage type identifier.
func (s *Storage) Type() string {
	return "s3"
}

func queryToken(presigned string) (string, error) {
	u, err := url.Parse(presigned)
	if err != nil {
		return "", fmt.Errorf("parse presigned url: %w", err)
	}
	if u.RawQuery == "" {
		return "", fmt.Errorf("presigned url has no query string")
	}
	return u.RawQuery, nil
}
