// Package uploader implements the client side of the resumable multipart
// upload protocol. It walks a local file through the coordination server's
// initiate, presign-part and complete endpoints, PUTting each part
// directly to the presigned object store URL, so the file bytes never
// travel through the coordination server.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethgrid/pester"

	"github.com/castkit/uploadd/pkg/objstore"
)

// State describes where an upload currently is in its lifecycle. The
// terminal states are StateDone, StateFailed and StateCancelled.
type State int32

const (
	StateIdle State = iota
	StateInitiating
	StateUploadingPart
	StateCompleting
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiating:
		return "initiating"
	case StateUploadingPart:
		return "uploading-part"
	case StateCompleting:
		return "completing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrMissingIntegrityToken is returned when the object store answers a
// part PUT without an ETag header. Without the token the upload can never
// be completed, so the part PUT counts as failed even though the store
// answered 200.
var ErrMissingIntegrityToken = errors.New("uploader: part response carries no ETag header")

// abortTimeout bounds the best-effort abort issued after a failure or
// cancellation. It runs on a fresh context because the upload's own
// context may already be cancelled.
const abortTimeout = 30 * time.Second

// Doer is the subset of http.Client the uploader needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Progress reports the upload position after each finished part.
type Progress struct {
	PartNumber    int32
	PartsTotal    int32
	UploadedBytes int64
	TotalBytes    int64
	// Percent is the integer upload percentage in [0, 100].
	Percent int
}

// Result describes a finished upload.
type Result struct {
	Key           string
	Bucket        string
	Location      string
	ETag          string
	PartsUploaded int
}

// ServerError is a JSON error envelope returned by the coordination
// server.
type ServerError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("uploader: server rejected request: %s (%s)", e.Message, e.Code)
}

// Client drives one upload at a time against a coordination server. The
// zero value is not usable; at least Endpoint must be set.
type Client struct {
	// Endpoint is the base URL of the coordination server, without a
	// trailing slash, e.g. "https://upload.castkit.dev".
	Endpoint string
	// Token is sent as a Bearer token on every coordination request.
	Token string
	// PartSize is the size of each uploaded part except the last.
	// Defaults to DefaultPartSize.
	PartSize int64
	// Retries enables transparent retries of coordination and part
	// requests when positive. Zero disables retrying entirely: a dropped
	// part surfaces as an error and the caller decides whether to start
	// over.
	Retries int
	// HTTPClient overrides the HTTP client used for all requests.
	HTTPClient Doer
	// AbortOnFailure issues a best-effort abort for the session when the
	// upload fails or is cancelled, letting the object store reclaim the
	// parts uploaded so far.
	AbortOnFailure bool
	// OnProgress, if set, is called after every finished part.
	OnProgress func(Progress)
	// Logger is used for logging events. If unset, logging is disabled.
	Logger *zerolog.Logger

	state atomic.Int32
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}

// State returns the current lifecycle state. It is safe to call from a
// different goroutine than the one running Upload.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) httpClient() Doer {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	if c.Retries > 0 {
		client := pester.New()
		client.MaxRetries = c.Retries
		client.Backoff = pester.ExponentialBackoff
		client.Concurrency = 1
		return client
	}
	return http.DefaultClient
}

func (c *Client) partSize() int64 {
	if c.PartSize > 0 {
		return c.PartSize
	}
	return DefaultPartSize
}

// Upload pushes size bytes from data to the given key as one multipart
// upload. Parts are uploaded strictly sequentially. The context is
// checked before every network call; cancelling it moves the upload into
// StateCancelled and, when AbortOnFailure is set, abandons the session.
func (c *Client) Upload(ctx context.Context, key string, contentType string, data io.ReaderAt, size int64) (*Result, error) {
	result, uploadID, err := c.upload(ctx, key, contentType, data, size)
	if err != nil {
		if ctx.Err() != nil {
			c.setState(StateCancelled)
		} else {
			c.setState(StateFailed)
		}
		if c.AbortOnFailure && uploadID != "" {
			c.abortSession(key, uploadID)
		}
		return nil, err
	}

	c.setState(StateDone)
	return result, nil
}

func (c *Client) upload(ctx context.Context, key string, contentType string, data io.ReaderAt, size int64) (*Result, string, error) {
	parts, err := planParts(size, c.partSize())
	if err != nil {
		return nil, "", err
	}

	c.setState(StateInitiating)
	var initiated struct {
		UploadID string `json:"uploadId"`
	}
	err = c.post(ctx, "/upload/initiate", map[string]string{
		"key":         key,
		"contentType": contentType,
	}, &initiated)
	if err != nil {
		return nil, "", err
	}
	uploadID := initiated.UploadID

	c.logger().Info().
		Str("key", key).
		Str("uploadId", uploadID).
		Int("parts", len(parts)).
		Int64("size", size).
		Msg("UploadStarted")

	completed := make([]objstore.CompletedPart, 0, len(parts))
	var uploaded int64
	for _, part := range parts {
		c.setState(StateUploadingPart)

		eTag, err := c.uploadPart(ctx, key, uploadID, part, data)
		if err != nil {
			return nil, uploadID, err
		}

		completed = append(completed, objstore.CompletedPart{
			PartNumber: part.number,
			ETag:       eTag,
		})
		uploaded += part.length

		percent := 100
		if size > 0 {
			percent = int(uploaded * 100 / size)
		}
		c.logger().Debug().
			Int32("part", part.number).
			Int("percent", percent).
			Msg("PartUploaded")
		if c.OnProgress != nil {
			c.OnProgress(Progress{
				PartNumber:    part.number,
				PartsTotal:    int32(len(parts)),
				UploadedBytes: uploaded,
				TotalBytes:    size,
				Percent:       percent,
			})
		}
	}

	c.setState(StateCompleting)
	var done struct {
		Result *objstore.CompleteResult `json:"result"`
	}
	err = c.post(ctx, "/upload/complete", map[string]interface{}{
		"key":      key,
		"uploadId": uploadID,
		"parts":    completed,
	}, &done)
	if err != nil {
		return nil, uploadID, err
	}

	c.logger().Info().
		Str("key", key).
		Str("uploadId", uploadID).
		Msg("UploadCompleted")

	result := &Result{
		Key:           key,
		PartsUploaded: len(parts),
	}
	if done.Result != nil {
		result.Bucket = done.Result.Bucket
		result.Location = done.Result.Location
		result.ETag = done.Result.ETag
		if done.Result.Key != "" {
			result.Key = done.Result.Key
		}
	}
	return result, uploadID, nil
}

// uploadPart presigns one part and PUTs its byte range to the returned
// URL. The object store's ETag answer is the part's integrity token.
func (c *Client) uploadPart(ctx context.Context, key string, uploadID string, part partRange, data io.ReaderAt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var presigned struct {
		URL string `json:"url"`
	}
	err := c.post(ctx, "/upload/presign-part", map[string]interface{}{
		"key":        key,
		"uploadId":   uploadID,
		"partNumber": part.number,
	}, &presigned)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.URL, io.NewSectionReader(data, part.offset, part.length))
	if err != nil {
		return "", err
	}
	req.ContentLength = part.length

	res, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("uploader: part %d PUT failed: %w", part.number, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("uploader: part %d PUT answered status %d", part.number, res.StatusCode)
	}

	eTag := strings.Trim(res.Header.Get("ETag"), `"`)
	if eTag == "" {
		return "", ErrMissingIntegrityToken
	}
	return eTag, nil
}

// post sends a JSON body to a coordination endpoint and decodes the JSON
// answer into out. Error envelopes become a *ServerError.
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(c.Endpoint, "/")+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("uploader: request to %s failed: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var envelope struct {
			Code    string `json:"code"`
			Message string `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil || envelope.Message == "" {
			return &ServerError{
				Code:       "ERR_UNEXPECTED_RESPONSE",
				Message:    fmt.Sprintf("status %d from %s", res.StatusCode, path),
				StatusCode: res.StatusCode,
			}
		}
		return &ServerError{
			Code:       envelope.Code,
			Message:    envelope.Message,
			StatusCode: res.StatusCode,
		}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("uploader: invalid response from %s: %w", path, err)
		}
	}
	return nil
}

// abortSession tells the server to abandon the session. It runs on a
// fresh context so it still works after the upload's context was
// cancelled; failures are logged and swallowed.
func (c *Client) abortSession(key string, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	err := c.post(ctx, "/upload/abort", map[string]string{
		"key":      key,
		"uploadId": uploadID,
	}, nil)
	if err != nil {
		c.logger().Warn().
			Err(err).
			Str("key", key).
			Str("uploadId", uploadID).
			Msg("AbortFailed")
		return
	}

	c.logger().Info().
		Str("key", key).
		Str("uploadId", uploadID).
		Msg("UploadAborted")
}
