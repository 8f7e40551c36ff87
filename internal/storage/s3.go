package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options selects the bucket images go to and how references are rendered.
type S3Options struct {
	Bucket    string
	KeyPrefix string
	// PublicBaseURL, when set, turns references into absolute URLs (base + "/" + key)
	// and uploads carry no ACL, so the bucket policy (or CDN) must grant
	// public read on KeyPrefix. Otherwise references take the form s3://bucket/key.
	PublicBaseURL string
}

// S3Service uploads product images to Amazon S3 (or compatible APIs).
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     S3Options
}

func NewS3Service(client *s3.Client, opts S3Options) (*S3Service, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	opts.KeyPrefix = strings.Trim(opts.KeyPrefix, "/")
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
	}, nil
}

func (s *S3Service) Save(ctx context.Context, originalName string, body io.Reader) (string, error) {
	if err := checkImageName(originalName); err != nil {
		return "", err
	}
	key := s.key(objectName(originalName, time.Now()))
	if _, err := s.uploader.Upload(ctx, s.putInput(key, body)); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.reference(key), nil
}

// putInput builds the upload request. Objects are marked private unless a
// public base URL is configured; public reads then come from the bucket policy.
func (s *S3Service) putInput(key string, body io.Reader) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if s.opts.PublicBaseURL == "" {
		input.ACL = types.ObjectCannedACLPrivate
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	return input
}

func (s *S3Service) Delete(ctx context.Context, ref string) error {
	key, err := s.keyFromReference(ref)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) key(name string) string {
	if s.opts.KeyPrefix == "" {
		return name
	}
	return s.opts.KeyPrefix + "/" + name
}

func (s *S3Service) reference(key string) string {
	if s.opts.PublicBaseURL != "" {
		return s.opts.PublicBaseURL + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key)
}

func (s *S3Service) keyFromReference(ref string) (string, error) {
	var rest string
	switch {
	case s.opts.PublicBaseURL != "" && strings.HasPrefix(ref, s.opts.PublicBaseURL+"/"):
		rest = strings.TrimPrefix(ref, s.opts.PublicBaseURL+"/")
	case strings.HasPrefix(ref, "s3://"):
		parts := strings.SplitN(strings.TrimPrefix(ref, "s3://"), "/", 2)
		if len(parts) != 2 || parts[0] != s.opts.Bucket {
			return "", fmt.Errorf("delete %q: %w", ref, ErrForeignReference)
		}
		rest = parts[1]
	default:
		return "", fmt.Errorf("delete %q: %w", ref, ErrForeignReference)
	}

	rest = strings.TrimPrefix(rest, "/")
	if rest == "" || (s.opts.KeyPrefix != "" && !strings.HasPrefix(rest, s.opts.KeyPrefix+"/")) {
		return "", fmt.Errorf("delete %q: %w", ref, ErrForeignReference)
	}
	return rest, nil
}

var _ Service = (*S3Service)(nil)
