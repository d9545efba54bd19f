// Copyright 2025 Takhin Data, Inc.

package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/takhin-data/stratum/internal/tier"
)

// S3Config configures the S3 client, adapted from the teacher's S3Config
// (tiered.S3Config) for COLD/BACKUP object storage instead of log-segment
// archival.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store implements tier.ObjectStoreAdapter, optionally compressing
// uploads through a Compressor.
type S3Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	compressor *Compressor
}

func NewS3Store(ctx context.Context, cfg S3Config, compressor *Compressor) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, compressor: compressor}, nil
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(s.prefix, key)
}

func (s *S3Store) Upload(ctx context.Context, key string, data []byte, opts tier.ObjectUploadOptions) (tier.ObjectUploadResult, error) {
	body := data
	if opts.Compress && s.compressor != nil {
		compressed, err := s.compressor.Compress(data)
		if err != nil {
			return tier.ObjectUploadResult{}, fmt.Errorf("compress %q: %w", key, err)
		}
		body = compressed
	}

	metadata := opts.Metadata
	if opts.Compress {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["x-stratum-codec"] = s.compressor.Name()
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		Body:     bytes.NewReader(body),
		Metadata: metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return tier.ObjectUploadResult{}, fmt.Errorf("s3 upload %q: %w", key, err)
	}

	result := tier.ObjectUploadResult{}
	if out.ETag != nil {
		result.ETag = *out.ETag
	}
	return result, nil
}

func (s *S3Store) Download(ctx context.Context, key string, opts tier.ObjectDownloadOptions) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %q: %w", key, err)
	}

	if opts.Decompress && s.compressor != nil {
		decompressed, err := s.compressor.Decompress(data)
		if err != nil {
			return nil, fmt.Errorf("decompress %q: %w", key, err)
		}
		return decompressed, nil
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}); err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string, max int) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.objectKey(prefix)),
		MaxKeys: aws.Int32(int32(max)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 list %q: %w", prefix, err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %q: %w", key, err)
	}
	return true, nil
}

func (s *S3Store) Head(ctx context.Context, key string) (tier.ObjectMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return tier.ObjectMetadata{}, fmt.Errorf("s3 head %q: %w", key, err)
	}

	meta := tier.ObjectMetadata{Metadata: out.Metadata}
	if out.ContentLength != nil {
		meta.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		meta.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	} else {
		meta.LastModified = time.Time{}
	}
	return meta, nil
}

var _ tier.ObjectStoreAdapter = (*S3Store)(nil)
