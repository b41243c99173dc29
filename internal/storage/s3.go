package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/checksum"
)

// S3API is the subset of the S3 client used by the S3 provider.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds connection settings for an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // empty for AWS, set for MinIO/Localstack
	KeyPrefix       string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from cfg. Without static credentials the
// default AWS credential chain is used.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3 implements Provider on top of an S3 bucket.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

var _ Provider = (*S3)(nil)

// NewS3 creates an S3 provider storing objects under prefix in bucket.
func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (p *S3) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Store buffers r and writes it with a create-only condition so an existing
// object is never replaced.
func (p *S3) Store(ctx context.Context, r io.Reader, desiredName string) (Object, error) {
	cr := checksum.NewReader(r)
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, cr); err != nil {
		return Object{}, apperr.Storage("storage: read upload", err)
	}
	data := buf.Bytes()

	for range maxNameAttempts {
		name := GenerateName(desiredName)
		key := p.key(name)
		in := &s3.PutObjectInput{
			Bucket:        aws.String(p.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			IfNoneMatch:   aws.String("*"),
		}
		if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
			in.ContentType = aws.String(ct)
		}
		_, err := p.client.PutObject(ctx, in)
		if isPreconditionFailed(err) {
			continue
		}
		if err != nil {
			return Object{}, apperr.Storage("storage: put "+key, err)
		}
		return Object{Name: name, Path: key, Size: cr.Size(), Checksum: cr.Sum()}, nil
	}
	return Object{}, apperr.Storage("storage: put", fmt.Errorf("no free name for %q", desiredName))
}

// Open streams the object at key.
func (p *S3) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("storage: open %s: %w", key, apperr.ErrNotFound)
		}
		return nil, apperr.Storage("storage: get "+key, err)
	}
	return out.Body, nil
}

// Delete removes the object at key. S3 deletes are idempotent, so a missing
// object is not reported.
func (p *S3) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperr.Storage("storage: delete "+key, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}
