package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/castkit/uploadd/pkg/guard"
	"github.com/castkit/uploadd/pkg/objstore"
)

// Gateway is the slice of the object store the endpoints drive. It is
// implemented by *objstore.Store.
type Gateway interface {
	InitiateUpload(ctx context.Context, key string, contentType string) (uploadID string, err error)
	PresignPart(ctx context.Context, key string, uploadID string, partNumber int32) (url string, err error)
	CompleteUpload(ctx context.Context, key string, uploadID string, parts []objstore.CompletedPart) (*objstore.CompleteResult, error)
	AbortUpload(ctx context.Context, key string, uploadID string) error
	PresignGet(ctx context.Context, key string) (url string, err error)
	ListKeys(ctx context.Context, prefix string, maxKeys int32) ([]string, error)
}

// ChannelLister is optionally implemented by channel stores that can
// enumerate a creator's channels. When the configured store supports it,
// the debug channel listing endpoint is mounted.
type ChannelLister interface {
	ListByCreator(ctx context.Context, creatorID string) ([]guard.Channel, error)
}

// Config provides a way to configure the Handler depending on your needs.
type Config struct {
	// Store is the object store gateway all upload and media operations
	// are forwarded to.
	Store Gateway
	// Bucket is echoed in responses so clients can address the finished
	// object. It must match the bucket the gateway writes to.
	Bucket string
	// Channels resolves channel ownership for the authorization guard.
	Channels guard.ChannelStore
	// Auth resolves the caller's creator id. Required; every endpoint
	// except the storage health probe is authenticated.
	Auth Authenticator
	// Logger is used for logging events. If unset, logging is disabled.
	Logger *zerolog.Logger
	// ListMaxKeys caps media listing responses. Defaults to 50.
	ListMaxKeys int32
}

func (config *Config) validate() error {
	if config.Store == nil {
		return errors.New("handler: no object store gateway configured")
	}
	if config.Bucket == "" {
		return errors.New("handler: no bucket configured")
	}
	if config.Channels == nil {
		return errors.New("handler: no channel store configured")
	}
	if config.Auth == nil {
		return errors.New("handler: no authenticator configured")
	}
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
	if config.ListMaxKeys <= 0 {
		config.ListMaxKeys = 50
	}

	return nil
}
