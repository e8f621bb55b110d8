package export

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// PutObjectAPI is the part of *s3.Client the S3 destination uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads each file as an object under a key prefix.
type S3Destination struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewS3Destination(client PutObjectAPI, bucket, prefix string) *S3Destination {
	return &S3Destination{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3DestinationFromConfig builds the client from the default AWS
// credential chain (environment, shared config, instance role).
func NewS3DestinationFromConfig(ctx context.Context, bucket, prefix string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Str("bucket", bucket).Msg("AWS config loaded")
	return NewS3Destination(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// ParseS3URL splits "s3://bucket/some/prefix" into bucket and prefix.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: want s3://bucket/prefix", raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

func (d *S3Destination) key(name string) string {
	if d.prefix == "" {
		return name
	}
	return path.Join(d.prefix, name)
}

func (d *S3Destination) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) error {
	key := d.key(name)
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	log.Debug().Str("bucket", d.bucket).Str("key", key).Int64("size", size).Msg("Photo uploaded to S3")
	return nil
}

func (d *S3Destination) Close() error { return nil }

func (d *S3Destination) String() string {
	return "s3://" + d.bucket + "/" + d.prefix
}
