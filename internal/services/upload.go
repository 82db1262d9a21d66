package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = 5 * time.Minute

// UploadKind says what an uploaded file is for
type UploadKind string

const (
	UploadSubmission UploadKind = "submission"
	UploadProfile    UploadKind = "profile"
	UploadLogo       UploadKind = "logo"
)

var uploadExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/heic": "heic",
	"image/webp": "webp",
}

// Presigner signs S3 PUT requests
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// NewS3Presigner builds a presign client. Static keys are used when given,
// otherwise the default AWS credential chain. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewS3Presigner(ctx context.Context, region, accessKey, secretKey, endpoint string) (*s3.PresignClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

// UploadService hands out presigned upload URLs for images
type UploadService struct {
	presigner Presigner
	bucket    string
	baseURL   string
}

// NewUploadService creates a new upload service. baseURL prefixes object
// keys to form the durable file URL; empty means the bucket's public S3 URL.
func NewUploadService(presigner Presigner, bucket, region, baseURL string) *UploadService {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &UploadService{
		presigner: presigner,
		bucket:    bucket,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Kind        UploadKind `json:"kind" validate:"required,oneof=submission profile logo"`
	ContentType string     `json:"content_type" validate:"required"`
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// GetPreSignedURL generates a pre-signed URL for uploading one image. The
// client PUTs the file to UploadURL and then sends FileURL with its
// submission or profile.
func (s *UploadService) GetPreSignedURL(ctx context.Context, userID string, req UploadRequest) (*UploadResponse, error) {
	switch req.Kind {
	case UploadSubmission, UploadProfile, UploadLogo:
	default:
		return nil, invalid("kind", "kind must be submission, profile or logo")
	}
	ext, ok := uploadExtensions[strings.ToLower(req.ContentType)]
	if !ok {
		return nil, invalid("content_type", "only JPEG, PNG, HEIC and WebP images can be uploaded")
	}

	// {kind}s/{user_id}/{file_id}.{ext}
	key := fmt.Sprintf("%ss/%s/%s.%s", req.Kind, userID, uuid.New().String(), ext)

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(strings.ToLower(req.ContentType)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		FileURL:   s.baseURL + "/" + key,
		Key:       key,
		ExpiresIn: int(uploadURLExpiry / time.Second),
	}, nil
}
