package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutAPI struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func newTestStorage(api putObjectAPI) *S3Storage {
	s := NewS3Storage("us-east-1", "cart-archive", "AKIDEXAMPLE", "secret")
	s.api = api
	return s
}

func TestS3Storage_Upload(t *testing.T) {
	api := &fakePutAPI{}
	s := newTestStorage(api)

	location, err := s.Upload(context.Background(), "abandoned-carts/20260301-x.xlsx", []byte("PK"), "application/zip")

	require.NoError(t, err)
	assert.Equal(t, "s3://cart-archive/abandoned-carts/20260301-x.xlsx", location)
	assert.Equal(t, "cart-archive", aws.ToString(api.input.Bucket))
	assert.Equal(t, "application/zip", aws.ToString(api.input.ContentType))
	assert.Equal(t, int64(2), aws.ToInt64(api.input.ContentLength))
	assert.Equal(t, []byte("PK"), api.body)
}

func TestS3Storage_UploadErrors(t *testing.T) {
	t.Run("Invalid key", func(t *testing.T) {
		s := newTestStorage(&fakePutAPI{})
		for _, key := range []string{"", "/abs.xlsx", "../up.xlsx"} {
			_, err := s.Upload(context.Background(), key, nil, "")
			assert.ErrorIs(t, err, ErrInvalidKey, key)
		}
	})

	t.Run("Put fails", func(t *testing.T) {
		s := newTestStorage(&fakePutAPI{err: errors.New("access denied")})
		_, err := s.Upload(context.Background(), "a.xlsx", []byte("x"), "")
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestS3Storage_PresignDownload(t *testing.T) {
	s := newTestStorage(&fakePutAPI{})

	raw, err := s.PresignDownload(context.Background(), "abandoned-carts/a.xlsx", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, u.Host+u.Path, "cart-archive")
	assert.Contains(t, u.Path, "abandoned-carts/a.xlsx")
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
