package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"instagen/internal/config"
	"instagen/internal/model"
	"instagen/internal/persist"
)

// BlobStore uploads media payloads to an S3-compatible bucket (Cloudflare R2)
// and returns durable public URLs.
type BlobStore struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewBlobStore constructs the R2 client from configuration.
func NewBlobStore(ctx context.Context, cfg *config.Config) (*BlobStore, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicURL == "" {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &BlobStore{
		s3Client:  s3Client,
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

// UploadMedia validates the payload, normalizes avatar images to a square
// JPEG, and uploads to the bucket. Returns the durable media reference.
func (b *Backend) UploadMedia(ctx context.Context, input model.UploadInput) (*model.UploadResult, error) {
	if b.blobs == nil {
		return nil, persist.Failure("upload-media", fmt.Errorf("no blob store configured"))
	}
	result, err := b.blobs.Upload(ctx, input)
	if err != nil {
		return nil, persist.Failure("upload-media", err)
	}
	return result, nil
}

// Upload performs the raw blob write.
func (s *BlobStore) Upload(ctx context.Context, input model.UploadInput) (*model.UploadResult, error) {
	data := input.Data
	if int64(len(data)) > model.MaxMediaSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	contentType := input.ContentType
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	ext := ".bin"
	switch {
	case strings.HasPrefix(contentType, "image/"):
		if !model.IsAllowedImageType(contentType) {
			return nil, model.ErrInvalidImageType
		}
		ext = ".jpg"
		if input.Folder == model.AvatarFolder {
			normalized, err := resizeToJPEG(data, model.AvatarWidth, model.AvatarHeight, 85)
			if err != nil {
				return nil, err
			}
			data = normalized
			contentType = model.ContentTypeJPEG
		}
	case strings.HasPrefix(contentType, "video/"):
		ext = ".mp4"
	}

	key := fmt.Sprintf("%s/%s%s", input.Folder, uuid.NewString(), ext)
	if err := s.putObject(ctx, key, data, contentType); err != nil {
		return nil, err
	}

	return &model.UploadResult{
		URL: fmt.Sprintf("%s/%s", s.publicURL, key),
		Key: key,
	}, nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *BlobStore) putObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// KeyForURL maps a public media URL back to its object key. Returns "" for
// URLs outside this bucket (seed data, inline payloads, foreign hosts).
func (s *BlobStore) KeyForURL(url string) string {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok {
		return ""
	}
	return key
}

// DeleteObject removes an object by key.
func (s *BlobStore) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
