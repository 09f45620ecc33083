package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// MaxModelFileSize is the maximum allowed size of a booth model upload (50MB).
	MaxModelFileSize = 50 * 1024 * 1024
	// FolderBooths is the S3 prefix for booth model objects.
	FolderBooths = "booths"
)

// AllowedModelExtensions maps accepted 3-D model extensions to their MIME type.
var AllowedModelExtensions = map[string]string{
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ModelsBucket         string
	PresignExpireMinutes int
}

// S3 stores booth models with pre-signed and streamed uploads.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY), falling back to the default chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("models_bucket", cfg.ModelsBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{client: client, uploader: uploader, cfg: cfg, logger: logger}, nil
}

// ModelContentType returns the MIME type for a model filename and whether
// the extension is accepted.
func ModelContentType(filename string) (string, bool) {
	ct, ok := AllowedModelExtensions[strings.ToLower(path.Ext(filename))]
	return ct, ok
}

// ModelKey returns the object key booths/{expo_id}/{booth_id}/{nonce}{ext}.
// The nonce keeps a re-upload from overwriting an object still being served.
func ModelKey(expoID, boothID, nonce, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return ModelPrefix(expoID, boothID) + path.Base(nonce+ext)
}

// ModelPrefix is the key prefix of one booth's model objects.
func ModelPrefix(expoID, boothID string) string {
	return path.Join(FolderBooths, expoID, boothID) + "/"
}

// ExpoModelPrefix is the key prefix of every model object of an expo.
func ExpoModelPrefix(expoID string) string {
	return path.Join(FolderBooths, expoID) + "/"
}

// UnderPrefix reports whether key is a clean object key below prefix.
func UnderPrefix(prefix, key string) bool {
	return len(key) > len(prefix) && strings.HasPrefix(key, prefix) && path.Clean(key) == key
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// PresignModelUpload returns a pre-signed PUT URL for a direct model upload.
func (s *S3) PresignModelUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	expires := s.PresignExpire()
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.ModelsBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put: %w", err)
	}
	return req.URL, time.Now().Add(expires), nil
}

// UploadModel streams body to the models bucket.
func (s *S3) UploadModel(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.ModelsBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// PublicObjectURL returns the public URL for a model object.
func (s *S3) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.ModelsBucket, s.cfg.Region, key)
}

// DeleteModel removes a model object from the models bucket.
func (s *S3) DeleteModel(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.ModelsBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
