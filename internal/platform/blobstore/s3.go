package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client the store calls.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner is the subset of *s3.PresignClient the store calls.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Config struct {
	Bucket string
	Region string
	// EndpointURL points the client at LocalStack or MinIO; path-style
	// addressing is used when it is set.
	EndpointURL string
}

// S3Store keeps documents in one bucket, encrypted with the bucket's KMS key.
type S3Store struct {
	client  S3API
	presign Presigner
	bucket  string
}

// NewS3Store loads the default AWS credential chain and returns a store for
// cfg.Bucket.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

func NewS3StoreWithClient(client S3API, presign Presigner, bucket string) *S3Store {
	return &S3Store{client: client, presign: presign, bucket: bucket}
}

func (s *S3Store) Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	data, err := readAll(&meta, content)
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(meta.Key),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(meta.Size),
		ContentType:          aws.String(meta.ContentType),
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
		Metadata: map[string]string{
			"user-id":   meta.UserID,
			"kind":      meta.Kind,
			"file-name": meta.FileName,
			"sha256":    meta.Hash,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", meta.Key, err)
	}

	out := meta
	return &out, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, *Metadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("s3 get %s: %w", key, err)
	}

	meta := metadataFromKey(key, aws.ToInt64(out.ContentLength), aws.ToTime(out.LastModified))
	meta.ContentType = aws.ToString(out.ContentType)
	if name := out.Metadata["file-name"]; name != "" {
		meta.FileName = name
	}
	meta.Hash = out.Metadata["sha256"]
	return out.Body, meta, nil
}

func (s *S3Store) List(ctx context.Context, userID, kind string, limit, offset int) ([]*Metadata, int, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(UserPrefix(userID, kind)),
	})

	var matched []*Metadata
	for p.HasMorePages() {
		pg, err := p.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("s3 list %s: %w", userID, err)
		}
		for _, obj := range pg.Contents {
			matched = append(matched, metadataFromKey(aws.ToString(obj.Key), aws.ToInt64(obj.Size), aws.ToTime(obj.LastModified)))
		}
	}

	items, total := page(matched, limit, offset)
	return items, total, nil
}

func (s *S3Store) DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func metadataFromKey(key string, size int64, modified time.Time) *Metadata {
	meta := &Metadata{Key: key, Size: size, CreatedAt: modified.UTC()}
	if uid, kind, name, ok := parseKey(key); ok {
		meta.UserID, meta.Kind, meta.FileName = uid, kind, name
		if ct, known := extensionTypes[extOf(name)]; known {
			meta.ContentType = ct
		}
	}
	return meta
}
