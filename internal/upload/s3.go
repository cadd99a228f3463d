package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/models"
)

// S3Options configures an S3Mirror. Endpoint is optional and switches the
// client to path-style addressing for S3-compatible stores.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies uploads into an S3 bucket as <prefix><category dir>/<name>.
type S3Mirror struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Mirror builds a client from the default AWS credential chain,
// overridden by static keys when both are set.
func NewS3Mirror(ctx context.Context, opts S3Options) (*S3Mirror, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 mirror: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 mirror: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Mirror{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Key returns the object key for a file name in a category.
func (m *S3Mirror) Key(name string, category models.Category) string {
	return m.prefix + category.Dir() + "/" + name
}

func (m *S3Mirror) Upload(ctx context.Context, path string, category models.Category) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3 mirror: open %s: %w", path, err)
	}
	defer f.Close()

	key := m.Key(filepath.Base(path), category)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(category.ContentType()),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 put %s: %v", apperr.ErrUpload, key, err)
	}
	return nil
}
