package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresignGet(t *testing.T) {
	assert := assert.New(t)

	gateway := &fakeGateway{
		presignGet: func(ctx context.Context, key string) (string, error) {
			assert.Equal("channels/ch1/video/abc.mp4", key)
			return "https://s3.example.com/get", nil
		},
	}
	handler := newTestHandler(t, gateway)

	w, body := doJSON(t, handler, "POST", "/media/presign-get", "token1",
		`{"key":"channels/ch1/video/abc.mp4"}`)

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal(true, body["ok"])
	assert.Equal("https://s3.example.com/get", body["url"])
}

func TestPresignGetForeignChannel(t *testing.T) {
	assert := assert.New(t)

	gateway := &fakeGateway{}
	handler := newTestHandler(t, gateway)

	w, body := doJSON(t, handler, "POST", "/media/presign-get", "token2",
		`{"key":"channels/ch1/video/abc.mp4"}`)

	assert.Equal(http.StatusForbidden, w.Code)
	assert.Equal("ERR_INVALID_CHANNEL", body["code"])
	assert.Empty(gateway.calls)
}

func TestListMedia(t *testing.T) {
	assert := assert.New(t)

	gateway := &fakeGateway{
		listKeys: func(ctx context.Context, prefix string, maxKeys int32) ([]string, error) {
			assert.Equal("channels/ch1/video/", prefix)
			assert.Equal(int32(50), maxKeys)
			return []string{
				"channels/ch1/video/a.mp4",
				"channels/ch1/video/b.mp4",
			}, nil
		},
	}
	handler := newTestHandler(t, gateway)

	w, body := doJSON(t, handler, "POST", "/media/list", "token1",
		`{"prefix":"channels/ch1/video/"}`)

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal(true, body["ok"])
	assert.Equal(float64(2), body["count"])
	assert.Len(body["keys"], 2)
}

func TestListMediaForeignPrefix(t *testing.T) {
	assert := assert.New(t)

	gateway := &fakeGateway{}
	handler := newTestHandler(t, gateway)

	w, body := doJSON(t, handler, "POST", "/media/list", "token1",
		`{"prefix":"channels/ch2/"}`)

	assert.Equal(http.StatusForbidden, w.Code)
	assert.Equal("ERR_INVALID_CHANNEL", body["code"])
	assert.Empty(gateway.calls)
}

func TestStorageHealth(t *testing.T) {
	assert := assert.New(t)

	gateway := &fakeGateway{
		listKeys: func(ctx context.Context, prefix string, maxKeys int32) ([]string, error) {
			assert.Equal("", prefix)
			assert.Equal(int32(5), maxKeys)
			return []string{"channels/ch1/video/a.mp4"}, nil
		},
	}
	handler := newTestHandler(t, gateway)

	// No Authorization header: the probe is unauthenticated.
	w, body := doJSON(t, handler, "GET", "/health/storage", "", "")

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal(true, body["ok"])
	assert.Equal("castkit-media", body["bucket"])
	assert.Len(body["sampleKeys"], 1)
}

func TestWhoami(t *testing.T) {
	assert := assert.New(t)

	handler := newTestHandler(t, &fakeGateway{})

	w, body := doJSON(t, handler, "GET", "/whoami", "token1", "")
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("creator1", body["user"])

	w, body = doJSON(t, handler, "GET", "/whoami", "", "")
	assert.Equal(http.StatusUnauthorized, w.Code)
	assert.Equal("ERR_NOT_LOGGED_IN", body["code"])
}

func TestDebugChannels(t *testing.T) {
	assert := assert.New(t)

	handler := newTestHandler(t, &fakeGateway{})

	w, body := doJSON(t, handler, "GET", "/debug/channels", "token1", "")

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal(true, body["ok"])
	assert.Equal(float64(1), body["count"])
	channels := body["channels"].([]interface{})
	channel := channels[0].(map[string]interface{})
	assert.Equal("ch1", channel["id"])
	assert.Equal("creator1", channel["creatorId"])
}
