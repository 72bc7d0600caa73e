package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castkit/uploadd/pkg/guard"
	"github.com/castkit/uploadd/pkg/objstore"
)

// fakeGateway implements Gateway through settable function fields and
// records every invocation, so tests can assert that rejected requests
// never reach the object store.
type fakeGateway struct {
	calls []string

	initiate    func(ctx context.Context, key, contentType string) (string, error)
	presignPart func(ctx context.Context, key, uploadID string, partNumber int32) (string, error)
	complete    func(ctx context.Context, key, uploadID string, parts []objstore.CompletedPart) (*objstore.CompleteResult, error)
	abort       func(ctx context.Context, key, uploadID string) error
	presignGet  func(ctx context.Context, key string) (string, error)
	listKeys    func(ctx context.Context, prefix string, maxKeys int32) ([]string, error)
}

func (g *fakeGateway) InitiateUpload(ctx context.Context, key, contentType string) (string, error) {
	g.calls = append(g.calls, "InitiateUpload")
	if g.initiate == nil {
		return "", errors.New("unexpected call to InitiateUpload")
	}
	return g.initiate(ctx, key, contentType)
}

func (g *fakeGateway) PresignPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	g.calls = append(g.calls, "PresignPart")
	if g.presignPart == nil {
		return "", errors.New("unexpected call to PresignPart")
	}
	return g.presignPart(ctx, key, uploadID, partNumber)
}

func (g *fakeGateway) CompleteUpload(ctx context.Context, key, uploadID string, parts []objstore.CompletedPart) (*objstore.CompleteResult, error) {
	g.calls = append(g.calls, "CompleteUpload")
	if g.complete == nil {
		return nil, errors.New("unexpected call to CompleteUpload")
	}
	return g.complete(ctx, key, uploadID, parts)
}

func (g *fakeGateway) AbortUpload(ctx context.Context, key, uploadID string) error {
	g.calls = append(g.calls, "AbortUpload")
	if g.abort == nil {
		return errors.New("unexpected call to AbortUpload")
	}
	return g.abort(ctx, key, uploadID)
}

func (g *fakeGateway) PresignGet(ctx context.Context, key string) (string, error) {
	g.calls = append(g.calls, "PresignGet")
	if g.presignGet == nil {
		return "", errors.New("unexpected call to PresignGet")
	}
	return g.presignGet(ctx, key)
}

func (g *fakeGateway) ListKeys(ctx context.Context, prefix string, maxKeys int32) ([]string, error) {
	g.calls = append(g.calls, "ListKeys")
	if g.listKeys == nil {
		return nil, errors.New("unexpected call to ListKeys")
	}
	return g.listKeys(ctx, prefix, maxKeys)
}

// mapChannels is an in-memory channel store. It also implements
// ChannelLister so the debug endpoint is mounted in tests.
type mapChannels map[string]guard.Channel

func (m mapChannels) Lookup(ctx context.Context, id string) (*guard.Channel, error) {
	channel, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &channel, nil
}

func (m mapChannels) ListByCreator(ctx context.Context, creatorID string) ([]guard.Channel, error) {
	var channels []guard.Channel
	for _, channel := range m {
		if channel.CreatorID == creatorID {
			channels = append(channels, channel)
		}
	}
	return channels, nil
}

// tokenAuth resolves "Bearer <token>" headers through a static token to
// creator id table.
type tokenAuth map[string]string

func (a tokenAuth) Authenticate(r *http.Request) (string, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	creatorID, ok := a[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return creatorID, nil
}

func newTestHandler(t *testing.T, gateway Gateway) *Handler {
	t.Helper()

	handler, err := New(Config{
		Store:  gateway,
		Bucket: "castkit-media",
		Channels: mapChannels{
			"ch1": {ID: "ch1", CreatorID: "creator1", Type: "video", Name: "First"},
			"ch2": {ID: "ch2", CreatorID: "creator2", Type: "podcast", Name: "Second"},
		},
		Auth: tokenAuth{
			"token1": "creator1",
			"token2": "creator2",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return handler
}

// doJSON performs a request against the handler and decodes the JSON
// response body into a generic map.
func doJSON(t *testing.T, handler http.Handler, method, path, token string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	decoded := map[string]interface{}{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}
