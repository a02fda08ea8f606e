package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// ObjectAPI is the subset of the S3 client the cloud backend calls.
// *s3.Client satisfies it.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Backend keeps one JSON object per identifier in a bucket.
type S3Backend struct {
	api    ObjectAPI
	bucket string
	prefix string
}

// NewS3Backend builds the cloud backend. Without a bucket it fails with
// ErrBucketMissing. A nil api builds a client from the default AWS
// configuration, honouring region and a custom endpoint.
func NewS3Backend(ctx context.Context, cfg types.CloudConfig, api ObjectAPI) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketMissing
	}
	if api == nil {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "loading aws config")
		}
		api = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}
	return &S3Backend{api: api, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Name returns "s3".
func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) key(id string) string {
	return path.Join(b.prefix, objectName(id))
}

// Save puts the record as a JSON object.
func (b *S3Backend) Save(ctx context.Context, id string, rec types.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "putting s3://%s/%s", b.bucket, b.key(id))
	}
	return nil
}

// Load gets the object for id.
func (b *S3Backend) Load(ctx context.Context, id string) (types.Record, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return types.Record{}, errors.Wrapf(ErrRecordNotFound, "identifier %q", id)
	}
	if err != nil {
		return types.Record{}, errors.Wrapf(err, "getting s3://%s/%s", b.bucket, b.key(id))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return types.Record{}, errors.Wrap(err, "reading object body")
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Record{}, errors.Wrap(err, "decoding record")
	}
	return rec, nil
}

// Close is a no-op; the S3 client holds no resources that need release.
func (b *S3Backend) Close() error { return nil }
