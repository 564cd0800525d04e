package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jackzampolin/lectern/internal/errs"
)

// S3 serves s3://bucket/key paths through an S3 API client. It also works
// against S3-compatible endpoints such as MinIO.
type S3 struct {
	client *s3.Client
}

var _ Store = (*S3)(nil)

func NewS3(client *s3.Client) *S3 {
	return &S3{client: client}
}

func (s *S3) Read(ctx context.Context, path string) ([]byte, error) {
	bucket, key, err := ParseS3Path(path)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		msg := "get object failed"
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			msg = "object does not exist"
		}
		return nil, &errs.StoreAccessError{Bucket: bucket, Key: key, Op: "read", Message: msg, Err: err}
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &errs.StoreAccessError{Bucket: bucket, Key: key, Op: "read", Message: "reading object body", Err: err}
	}
	return data, nil
}

func (s *S3) Write(ctx context.Context, path string, data []byte) error {
	bucket, key, err := ParseS3Path(path)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return &errs.StoreAccessError{Bucket: bucket, Key: key, Op: "write", Message: "put object failed", Err: err}
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, path string) (bool, error) {
	bucket, key, err := ParseS3Path(path)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, &errs.StoreAccessError{Bucket: bucket, Key: key, Op: "stat", Message: "head object failed", Err: err}
	}
	return true, nil
}
