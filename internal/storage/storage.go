// Package storage opens input and output files by reference. A reference is
// either a local path or an s3://bucket/key URL; S3 objects are read and
// written through aws-sdk-go-v2.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	s3Scheme      = "s3://"
	defaultRegion = "us-east-1"
)

// ErrBadReference indicates a malformed s3:// reference.
var ErrBadReference = errors.New("bad s3 reference")

// Config configures S3 access.
type Config struct {
	Region string `yaml:"region"`
	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store resolves references to readers and writers. The S3 client is only
// built when an s3:// reference is first used, so local-only runs need no
// AWS credentials.
type Store struct {
	cfg Config

	once      sync.Once
	client    ObjectAPI
	clientErr error
}

// Option customizes a Store.
type Option func(*Store)

// WithObjectAPI sets the S3 client instead of loading one from the AWS
// default credential chain.
func WithObjectAPI(api ObjectAPI) Option {
	return func(s *Store) {
		s.once.Do(func() { s.client = api })
	}
}

// New creates a Store.
func New(cfg Config, opts ...Option) *Store {
	s := &Store{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsS3 reports whether ref names an S3 object.
func IsS3(ref string) bool { return strings.HasPrefix(ref, s3Scheme) }

// ParseS3Ref splits s3://bucket/key into bucket and key.
func ParseS3Ref(ref string) (string, string, error) {
	if !IsS3(ref) {
		return "", "", fmt.Errorf("%w (missing s3://): %q", ErrBadReference, ref)
	}
	s := strings.TrimPrefix(ref, s3Scheme)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("%w (need bucket/key): %q", ErrBadReference, ref)
	}
	return s[:slash], s[slash+1:], nil
}

// Open returns a reader for ref.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !IsS3(ref) {
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", ref, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %s: %w", ref, err)
	}
	return out.Body, nil
}

// Create returns a writer for ref. For S3 the object is uploaded on Close.
// Local parent directories are created as needed.
func (s *Store) Create(ctx context.Context, ref string) (io.WriteCloser, error) {
	if !IsS3(ref) {
		if dir := filepath.Dir(ref); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
		f, err := os.Create(ref)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", ref, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	return &objectWriter{ctx: ctx, client: client, bucket: bucket, key: key}, nil
}

func (s *Store) s3Client(ctx context.Context) (ObjectAPI, error) {
	s.once.Do(func() {
		region := strings.TrimSpace(s.cfg.Region)
		if region == "" {
			region = defaultRegion
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			s.clientErr = fmt.Errorf("load aws config: %w", err)
			return
		}
		endpoint := strings.TrimSpace(s.cfg.Endpoint)
		s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
			o.UsePathStyle = s.cfg.UsePathStyle
		})
	})
	return s.client, s.clientErr
}

// objectWriter buffers an object and uploads it on Close.
type objectWriter struct {
	ctx    context.Context
	client ObjectAPI
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:      &w.bucket,
		Key:         &w.key,
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}
