package services

import (
	"context"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
}

func (p *fakePresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	p.input = params
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example.com/" + *params.Key, Method: "PUT"}, nil
}

func TestGetPreSignedURL(t *testing.T) {
	presigner := &fakePresigner{}
	svc := NewUploadService(presigner, "sponup", "us-east-1", "https://cdn.example.com/")

	resp, err := svc.GetPreSignedURL(context.Background(), "B", UploadRequest{Kind: UploadSubmission, ContentType: "image/JPEG"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "submissions/B/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".jpg"))
	assert.Equal(t, "https://cdn.example.com/"+resp.Key, resp.FileURL)
	assert.Equal(t, "https://signed.example.com/"+resp.Key, resp.UploadURL)
	assert.Equal(t, 300, resp.ExpiresIn)
	assert.Equal(t, "sponup", *presigner.input.Bucket)
	assert.Equal(t, "image/jpeg", *presigner.input.ContentType)
	assert.Equal(t, 5*time.Minute, presigner.expires)
}

func TestGetPreSignedURLDefaultsToBucketURL(t *testing.T) {
	svc := NewUploadService(&fakePresigner{}, "sponup", "eu-west-1", "")

	resp, err := svc.GetPreSignedURL(context.Background(), "R", UploadRequest{Kind: UploadLogo, ContentType: "image/png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.FileURL, "https://sponup.s3.eu-west-1.amazonaws.com/logos/R/"))
}

func TestGetPreSignedURLValidation(t *testing.T) {
	svc := NewUploadService(&fakePresigner{}, "sponup", "us-east-1", "")

	_, err := svc.GetPreSignedURL(context.Background(), "B", UploadRequest{Kind: "video", ContentType: "image/png"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "kind", verr.Field)

	_, err = svc.GetPreSignedURL(context.Background(), "B", UploadRequest{Kind: UploadProfile, ContentType: "application/pdf"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content_type", verr.Field)
}
