package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage talks to an S3 compatible endpoint, such as the one Supabase Storage exposes
// at /storage/v1/s3.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Storage(client *s3.Client) *S3Storage {
	return &S3Storage{client: client, presign: s3.NewPresignClient(client)}
}

func (s *S3Storage) SignURL(ctx context.Context, bucket, path string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, path, err)
	}

	return req.URL, nil
}

func (s *S3Storage) UploadFile(ctx context.Context, bucket, path string, file io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(path),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}

	return path, nil
}

func (s *S3Storage) DeleteFile(ctx context.Context, bucket, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, path, err)
	}
	return nil
}
