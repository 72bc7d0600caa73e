// Package keypath derives object keys for uploaded media and extracts the
// owning channel back out of them.
//
// Keys have the shape
//
//	channels/<channelId>/<category>/<uniqueId>.<ext>
//
// The channel id sits in a fixed path segment so that the ownership guard
// can authorize a request from the key alone. This coupling between the key
// shape and authorization is load-bearing: changing the prefix breaks every
// ownership check.
package keypath

import (
	"regexp"
	"strings"

	"github.com/castkit/uploadd/internal/uid"
)

// DefaultExtension is used when the source filename carries no dot-suffix.
const DefaultExtension = "bin"

// Category classifies the media stored in a channel.
type Category string

const (
	CategoryVideo   Category = "video"
	CategoryPodcast Category = "podcast"
	CategoryArticle Category = "article"
)

// Valid reports whether c is one of the known media categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryVideo, CategoryPodcast, CategoryArticle:
		return true
	}
	return false
}

var channelPattern = regexp.MustCompile(`^channels/([^/]+)/`)

// Derive builds a fresh object key for a file uploaded into the given
// channel. The unique suffix is generated per call, so two uploads of the
// same file never collide.
func Derive(channelID string, category Category, filename string) string {
	return "channels/" + channelID + "/" + string(category) + "/" + uid.Uid() + "." + Extension(filename)
}

// Extension returns the lower-cased dot-suffix of filename, or
// DefaultExtension if there is none.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return DefaultExtension
	}
	return strings.ToLower(filename[idx+1:])
}

// ChannelID extracts the channel id from an object key. The second return
// value is false for any key that does not match the channel prefix, in
// which case the key must not be authorized.
func ChannelID(key string) (string, bool) {
	m := channelPattern.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}
