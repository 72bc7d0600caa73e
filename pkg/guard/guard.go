// Package guard authorizes multipart upload operations by checking that the
// caller owns the channel an object key belongs to.
//
// Every endpoint runs the check independently per request. The decision is
// never cached across calls: each request is a separate trust boundary
// crossing and ownership can change between them.
package guard

import (
	"context"
	"errors"

	"github.com/castkit/uploadd/pkg/keypath"
)

// ErrMalformedKey is returned when the object key does not contain a
// channel id at the expected position.
var ErrMalformedKey = errors.New("guard: key does not contain a channel id")

// ErrNotOwned is returned both when the channel does not exist and when it
// is owned by a different creator. The two cases are deliberately
// indistinguishable so that callers cannot probe for channel existence.
var ErrNotOwned = errors.New("guard: channel does not exist or is not owned by caller")

// Channel is the minimal channel record needed to authorize an upload.
type Channel struct {
	ID        string `json:"id"`
	CreatorID string `json:"creatorId"`
	Type      string `json:"type"`
	Name      string `json:"name"`
}

// ChannelStore looks up channels in the ownership data source. Lookup
// returns (nil, nil) when no channel with the given id exists.
type ChannelStore interface {
	Lookup(ctx context.Context, id string) (*Channel, error)
}

// Guard validates channel ownership for object keys.
type Guard struct {
	Channels ChannelStore
}

// New returns a Guard reading from the given channel store.
func New(channels ChannelStore) *Guard {
	return &Guard{Channels: channels}
}

// Authorize extracts the channel id from key and verifies that the channel
// exists and belongs to callerID. It returns the channel record on success
// and performs no side effects.
func (g *Guard) Authorize(ctx context.Context, callerID string, key string) (*Channel, error) {
	channelID, ok := keypath.ChannelID(key)
	if !ok {
		return nil, ErrMalformedKey
	}

	channel, err := g.Channels.Lookup(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil || channel.CreatorID != callerID {
		return nil, ErrNotOwned
	}

	return channel, nil
}
