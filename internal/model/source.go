package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source is where a model artifact is read from.
type Source interface {
	// Fetch returns the artifact bytes.
	Fetch(ctx context.Context) ([]byte, error)

	// Stat checks that the artifact exists without reading it.
	Stat(ctx context.Context) error

	String() string
}

// S3Options configure the S3 client used for "s3://" URIs.
type S3Options struct {
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
}

// NewSource picks a Source for uri.
//
//	s3://bucket/path/model.json  -> S3Source
//	file:///abs/model.json       -> FileSource
//	models/neural.json           -> FileSource (relative to the working dir)
func NewSource(ctx context.Context, uri string, opts S3Options) (Source, error) {
	bucket, key, isS3, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if isS3 {
		client, err := newS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, bucket, key), nil
	}

	return NewFileSource(strings.TrimPrefix(uri, "file://")), nil
}

func parseS3URI(uri string) (bucket, key string, ok bool, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", false, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", true, fmt.Errorf("invalid model uri %q: %w", uri, err)
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("invalid model uri %q: want s3://<bucket>/<key>", uri)
	}

	return bucket, key, true, nil
}

func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	}), nil
}

// FileSource reads the artifact from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	return data, nil
}

func (s *FileSource) Stat(_ context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", s.path)
	}
	return nil
}

func (s *FileSource) String() string {
	return "file://" + s.path
}

// S3API is the subset of *s3.Client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Source reads the artifact from an S3 object.
type S3Source struct {
	client S3API
	bucket string
	key    string
}

// NewS3Source creates an S3Source for bucket/key.
func NewS3Source(client S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", s, err)
	}
	if result.Body == nil {
		return nil, errors.New("s3 get returned no body")
	}
	defer func() { _ = result.Body.Close() }()

	return io.ReadAll(result.Body)
}

func (s *S3Source) Stat(ctx context.Context) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("s3 head failed for %s: %w", s, err)
	}
	return nil
}

func (s *S3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
