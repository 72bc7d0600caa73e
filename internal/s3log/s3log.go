// Package s3log provides a logging wrapper for the S3 API used by the
// object store gateway.
package s3log

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/castkit/uploadd/pkg/objstore"
)

var _ objstore.S3API = &loggingS3API{}
var _ objstore.PresignAPI = &loggingPresignAPI{}

type loggingS3API struct {
	// Wrapped is the underlying objstore.S3API implementation
	Wrapped objstore.S3API
	Logger  zerolog.Logger
}

// New creates a wrapper around the provided S3 API that logs all calls to logger.
func New(wrapped objstore.S3API, logger zerolog.Logger) objstore.S3API {
	return &loggingS3API{
		Wrapped: wrapped,
		Logger:  logger,
	}
}

type loggingPresignAPI struct {
	Wrapped objstore.PresignAPI
	Logger  zerolog.Logger
}

// NewPresign creates a wrapper around the provided presign API that logs all
// calls to logger. Presigned URLs are never logged: they embed a signature
// that authorizes the operation.
func NewPresign(wrapped objstore.PresignAPI, logger zerolog.Logger) objstore.PresignAPI {
	return &loggingPresignAPI{
		Wrapped: wrapped,
		Logger:  logger,
	}
}

// jsonEncode converts a value to a JSON string, handling errors gracefully
func jsonEncode(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("{\"error\":\"failed to marshal: %v\"}", err)
	}

	return string(data)
}

// logCall logs an API call with its input, output, and error
func logCall(logger zerolog.Logger, operation string, input, output interface{}, err error, duration time.Duration) {
	ev := logger.Debug().
		Str("operation", operation).
		Str("input", jsonEncode(input)).
		Int64("duration_ms", duration.Milliseconds())

	if err != nil {
		ev = ev.Str("error", err.Error())
	} else if output != nil {
		ev = ev.Str("output", jsonEncode(output))
	}

	ev.Msg("S3APICall")
}

// CreateMultipartUpload implements the objstore.S3API interface
func (l *loggingS3API) CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, opt ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	start := time.Now()
	output, err := l.Wrapped.CreateMultipartUpload(ctx, input, opt...)
	logCall(l.Logger, "CreateMultipartUpload", input, output, err, time.Since(start))
	return output, err
}

// CompleteMultipartUpload implements the objstore.S3API interface
func (l *loggingS3API) CompleteMultipartUpload(ctx context.Context, input *s3.CompleteMultipartUploadInput, opt ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	start := time.Now()
	output, err := l.Wrapped.CompleteMultipartUpload(ctx, input, opt...)
	logCall(l.Logger, "CompleteMultipartUpload", input, output, err, time.Since(start))
	return output, err
}

// AbortMultipartUpload implements the objstore.S3API interface
func (l *loggingS3API) AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, opt ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	start := time.Now()
	output, err := l.Wrapped.AbortMultipartUpload(ctx, input, opt...)
	logCall(l.Logger, "AbortMultipartUpload", input, output, err, time.Since(start))
	return output, err
}

// ListObjectsV2 implements the objstore.S3API interface
func (l *loggingS3API) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opt ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	start := time.Now()
	output, err := l.Wrapped.ListObjectsV2(ctx, input, opt...)
	logCall(l.Logger, "ListObjectsV2", input, output, err, time.Since(start))
	return output, err
}

// PresignUploadPart implements the objstore.PresignAPI interface
func (l *loggingPresignAPI) PresignUploadPart(ctx context.Context, input *s3.UploadPartInput, opt ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	start := time.Now()
	output, err := l.Wrapped.PresignUploadPart(ctx, input, opt...)
	logCall(l.Logger, "PresignUploadPart", input, nil, err, time.Since(start))
	return output, err
}

// PresignGetObject implements the objstore.PresignAPI interface
func (l *loggingPresignAPI) PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opt ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	start := time.Now()
	output, err := l.Wrapped.PresignGetObject(ctx, input, opt...)
	logCall(l.Logger, "PresignGetObject", input, nil, err, time.Since(start))
	return output, err
}
