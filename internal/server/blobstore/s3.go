package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/securecloud/internal/common"
)

// S3Options configures an S3-compatible backend (AWS, MinIO, B2).
type S3Options struct {
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	Endpoint   string
	StagingDir string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
	return s3.NewFromConfig(cfg, optFns...)
}

// S3Store stages blobs in a local temp file and uploads them with a single
// PutObject on commit, so an object only appears once it is complete.
type S3Store struct {
	client     s3API
	bucket     string
	stagingDir string
	now        func() time.Time
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	staging := opts.StagingDir
	if staging == "" {
		staging = os.TempDir()
	}
	if err := os.MkdirAll(staging, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	return &S3Store{client: client, bucket: opts.Bucket, stagingDir: staging, now: time.Now}, nil
}

func (s *S3Store) Stage(ctx context.Context) (Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(s.stagingDir, "s3blob-*")
	if err != nil {
		return nil, fmt.Errorf("create staged blob: %w", err)
	}
	return &s3Staged{store: s, file: f, key: NewStorageKey(s.now())}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// Delete removes the object. S3 reports success for absent keys, so this
// backend never returns common.ErrorNotFound.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}

type s3Staged struct {
	store *S3Store
	file  *os.File
	key   string
	done  bool
}

func (b *s3Staged) Key() string { return b.key }

func (b *s3Staged) Write(p []byte) (int, error) {
	if b.done {
		return 0, os.ErrClosed
	}
	return b.file.Write(p)
}

func (b *s3Staged) Commit(ctx context.Context) error {
	if b.done {
		return errors.New("blob already finished")
	}
	b.done = true
	defer b.cleanup()

	size, err := b.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("stat staged blob: %w", err)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind staged blob: %w", err)
	}

	_, err = b.store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.store.bucket),
		Key:           aws.String(b.key),
		Body:          b.file,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (b *s3Staged) Abort() error {
	if b.done {
		return nil
	}
	b.done = true
	b.cleanup()
	return nil
}

func (b *s3Staged) cleanup() {
	_ = b.file.Close()
	_ = os.Remove(b.file.Name())
}
