// Package objstore wraps an S3-compatible object store for multipart media
// uploads.
//
// The Store does not proxy any file bytes itself. It creates multipart
// upload sessions, hands out short-lived presigned URLs so clients PUT part
// data directly to the object store, and finalizes or aborts sessions. The
// object store is the sole source of truth for an in-progress session; no
// session state is kept in this process.
//
// While this package uses the official AWS SDK for Go, Store works with any
// S3-compatible service. The production deployment targets Backblaze B2's
// S3 gateway, which is why checksum calculation is restricted to
// when-required: flexible checksums introduce extra headers that browsers
// cannot attach to a presigned PUT.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	// MaxMultipartParts is the maximum number of parts a multipart upload
	// is allowed to have according to the S3 API specification.
	// See: http://docs.aws.amazon.com/AmazonS3/latest/dev/qfacts.html
	MaxMultipartParts = 10000

	// DefaultPresignTTL bounds how long a presigned URL stays valid. A PUT
	// attempted after expiry fails at the object store like any other
	// upstream error.
	DefaultPresignTTL = 10 * time.Minute

	// immutableCacheControl is attached to every uploaded object. Media
	// keys embed a fresh unique id per upload, so the content behind a key
	// never changes.
	immutableCacheControl = "public, max-age=31536000, immutable"
)

// The labels to use for observing and storing request duration. One label per operation.
const (
	metricCreateMultipartUpload   = "create_multipart_upload"
	metricPresignUploadPart       = "presign_upload_part"
	metricCompleteMultipartUpload = "complete_multipart_upload"
	metricAbortMultipartUpload    = "abort_multipart_upload"
	metricPresignGetObject        = "presign_get_object"
	metricListObjects             = "list_objects"
)

// S3API is the subset of the S3 client used by Store. Usually this is an
// instance of github.com/aws/aws-sdk-go-v2/service/s3.Client.
type S3API interface {
	CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, opt ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, input *s3.CompleteMultipartUploadInput, opt ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, opt ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opt ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// PresignAPI is the subset of the S3 presign client used by Store. Usually
// this is an instance of github.com/aws/aws-sdk-go-v2/service/s3.PresignClient.
type PresignAPI interface {
	PresignUploadPart(ctx context.Context, input *s3.UploadPartInput, opt ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opt ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// CompletedPart identifies one uploaded part by its number and the
// integrity token the object store returned for it.
type CompletedPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"eTag"`
}

// CompleteResult is the object store's answer to a finalized upload.
type CompleteResult struct {
	Location string `json:"location,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Key      string `json:"key,omitempty"`
	ETag     string `json:"eTag,omitempty"`
}

// Store coordinates multipart upload sessions against one bucket.
type Store struct {
	// Bucket used to store the data in, e.g. "castkit-media".
	Bucket string
	// Service specifies an interface used to communicate with the S3 backend.
	Service S3API
	// Presigner issues presigned URLs scoped to a single operation.
	Presigner PresignAPI
	// PresignTTL is the lifetime of issued presigned URLs.
	PresignTTL time.Duration

	// requestDurationMetric holds the prometheus instance for storing the request durations.
	requestDurationMetric *prometheus.SummaryVec
}

// New constructs a new Store using the supplied bucket, service and presign
// client objects.
func New(bucket string, service S3API, presigner PresignAPI) *Store {
	requestDurationMetric := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:       "uploadd_s3_request_duration_ms",
		Help:       "Duration of requests sent to S3 in milliseconds per operation",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"operation"})

	return &Store{
		Bucket:                bucket,
		Service:               service,
		Presigner:             presigner,
		PresignTTL:            DefaultPresignTTL,
		requestDurationMetric: requestDurationMetric,
	}
}

// RegisterMetrics registers the store's prometheus metrics with registry.
func (store *Store) RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(store.requestDurationMetric)
}

func (store *Store) observeRequestDuration(start time.Time, label string) {
	elapsed := time.Since(start)
	ms := float64(elapsed.Nanoseconds() / int64(time.Millisecond))

	store.requestDurationMetric.WithLabelValues(label).Observe(ms)
}

// InitiateUpload creates a new multipart upload session for key and returns
// the opaque upload id the object store assigned to it.
func (store *Store) InitiateUpload(ctx context.Context, key string, contentType string) (string, error) {
	t := time.Now()
	res, err := store.Service.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:       aws.String(store.Bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(immutableCacheControl),
	})
	store.observeRequestDuration(t, metricCreateMultipartUpload)
	if err != nil {
		return "", fmt.Errorf("objstore: unable to create multipart upload: %w", err)
	}

	if res.UploadId == nil || *res.UploadId == "" {
		return "", errors.New("objstore: object store returned no upload id")
	}

	return *res.UploadId, nil
}

// PresignPart returns a presigned URL permitting exactly one PUT of the
// given part number within the given upload session. The URL expires after
// PresignTTL.
func (store *Store) PresignPart(ctx context.Context, key string, uploadID string, partNumber int32) (string, error) {
	t := time.Now()
	req, err := store.Presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(store.Bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = store.PresignTTL
	})
	store.observeRequestDuration(t, metricPresignUploadPart)
	if err != nil {
		return "", fmt.Errorf("objstore: unable to presign part %d: %w", partNumber, err)
	}

	return req.URL, nil
}

// CompleteUpload finalizes a multipart upload session from the collected
// part integrity tokens. Parts are sorted ascending by part number before
// the finalize call: the object store requires strictly ascending, gap-free
// order and the caller's accumulation order is not trusted to satisfy it.
func (store *Store) CompleteUpload(ctx context.Context, key string, uploadID string, parts []CompletedPart) (*CompleteResult, error) {
	completedParts := make([]types.CompletedPart, len(parts))
	for i, part := range parts {
		completedParts[i] = types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(part.PartNumber),
		}
	}
	slices.SortFunc(completedParts, func(a, b types.CompletedPart) int {
		return int(*a.PartNumber - *b.PartNumber)
	})

	t := time.Now()
	res, err := store.Service.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(store.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	store.observeRequestDuration(t, metricCompleteMultipartUpload)
	if err != nil {
		return nil, fmt.Errorf("objstore: unable to complete multipart upload: %w", err)
	}

	result := &CompleteResult{
		Bucket: store.Bucket,
		Key:    key,
	}
	if res.Location != nil {
		result.Location = *res.Location
	}
	if res.ETag != nil {
		result.ETag = *res.ETag
	}
	return result, nil
}

// AbortUpload abandons a multipart upload session, releasing all parts the
// object store has accumulated for it. Aborting a session that no longer
// exists is not an error.
func (store *Store) AbortUpload(ctx context.Context, key string, uploadID string) error {
	t := time.Now()
	_, err := store.Service.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(store.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	store.observeRequestDuration(t, metricAbortMultipartUpload)
	if err != nil && !isAwsError[*types.NoSuchUpload](err) && !isAwsErrorCode(err, "NoSuchUpload") {
		return fmt.Errorf("objstore: unable to abort multipart upload: %w", err)
	}
	return nil
}

// PresignGet returns a presigned URL permitting one GET of the given key,
// valid for PresignTTL.
func (store *Store) PresignGet(ctx context.Context, key string) (string, error) {
	t := time.Now()
	req, err := store.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = store.PresignTTL
	})
	store.observeRequestDuration(t, metricPresignGetObject)
	if err != nil {
		return "", fmt.Errorf("objstore: unable to presign get: %w", err)
	}

	return req.URL, nil
}

// ListKeys returns up to max object keys starting with prefix. An empty
// prefix lists from the beginning of the bucket, which doubles as a cheap
// reachability probe.
func (store *Store) ListKeys(ctx context.Context, prefix string, max int32) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(store.Bucket),
		MaxKeys: aws.Int32(max),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	t := time.Now()
	res, err := store.Service.ListObjectsV2(ctx, input)
	store.observeRequestDuration(t, metricListObjects)
	if err != nil {
		return nil, fmt.Errorf("objstore: unable to list objects: %w", err)
	}

	keys := make([]string, 0, len(res.Contents))
	for _, obj := range res.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

// isAwsError tests whether an error object is an instance of the AWS error
// type T.
func isAwsError[T error](err error) bool {
	var awsErr T
	return errors.As(err, &awsErr)
}

func isAwsErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
