// Package handler provides the HTTP endpoints that coordinate resumable
// multipart uploads: clients initiate a session, fetch a presigned URL per
// part, and complete or abort the session. Every mutating endpoint is
// authenticated and checked against channel ownership before the object
// store is touched.
package handler

import (
	"context"
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/rs/zerolog"

	"github.com/castkit/uploadd/pkg/guard"
)

// Handler exposes the upload session and media endpoints on a single
// http.Handler.
type Handler struct {
	config  Config
	guard   *guard.Guard
	logger  zerolog.Logger
	mux     *pat.PatternServeMux
	Metrics Metrics
}

// New creates a routed handler from the given configuration.
func New(config Config) (*Handler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	handler := &Handler{
		config:  config,
		guard:   guard.New(config.Channels),
		logger:  *config.Logger,
		mux:     pat.New(),
		Metrics: newMetrics(),
	}

	mux := handler.mux
	mux.Post("/upload/initiate", http.HandlerFunc(handler.initiateUpload))
	mux.Post("/upload/presign-part", http.HandlerFunc(handler.presignPart))
	mux.Post("/upload/complete", http.HandlerFunc(handler.completeUpload))
	mux.Post("/upload/abort", http.HandlerFunc(handler.abortUpload))

	mux.Post("/media/presign-get", http.HandlerFunc(handler.presignGet))
	mux.Post("/media/list", http.HandlerFunc(handler.listMedia))

	mux.Get("/health/storage", http.HandlerFunc(handler.storageHealth))
	mux.Get("/whoami", http.HandlerFunc(handler.whoami))

	if _, ok := config.Channels.(ChannelLister); ok {
		mux.Get("/debug/channels", http.HandlerFunc(handler.debugChannels))
	}

	return handler, nil
}

func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler.Metrics.RequestsTotal.WithLabelValues(r.URL.Path).Inc()
	handler.mux.ServeHTTP(w, r)
}

// authenticate resolves the caller's creator id or fails with
// ErrNotLoggedIn. The underlying cause is logged but never sent to the
// client.
func (handler *Handler) authenticate(r *http.Request) (string, error) {
	creatorID, err := handler.config.Auth.Authenticate(r)
	if err != nil {
		handler.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("AuthRejected")
		return "", ErrNotLoggedIn
	}
	return creatorID, nil
}

// authorize runs the ownership guard for the given key. It is called on
// every request that names a key; possession of an upload id is never
// taken as proof of ownership.
func (handler *Handler) authorize(ctx context.Context, creatorID string, key string) (*guard.Channel, error) {
	channel, err := handler.guard.Authorize(ctx, creatorID, key)
	if err != nil {
		return nil, err
	}
	return channel, nil
}
