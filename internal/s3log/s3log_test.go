package s3log

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	createErr error
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, opt ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("id")}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, input *s3.CompleteMultipartUploadInput, opt ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, opt ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opt ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{}, nil
}

func TestLogsCall(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	wrapped := New(&fakeS3{}, logger)

	out, err := wrapped.CreateMultipartUpload(context.Background(), &s3.CreateMultipartUploadInput{
		Bucket: aws.String("bucket"),
		Key:    aws.String("channels/ch1/video/a.mp4"),
	})
	assert.Nil(err)
	assert.Equal("id", *out.UploadId)

	logged := buf.String()
	assert.Contains(logged, "S3APICall")
	assert.Contains(logged, "CreateMultipartUpload")
	assert.Contains(logged, "channels/ch1/video/a.mp4")
}

func TestLogsError(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	wrapped := New(&fakeS3{createErr: errors.New("boom")}, logger)

	_, err := wrapped.CreateMultipartUpload(context.Background(), &s3.CreateMultipartUploadInput{})
	assert.Error(err)
	assert.Contains(buf.String(), "boom")
}
