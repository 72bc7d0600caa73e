package handler

import (
	"net/http"

	"github.com/castkit/uploadd/pkg/guard"
)

type presignGetRequest struct {
	Key string `json:"key"`
}

type presignGetResponse struct {
	OK  bool   `json:"ok"`
	URL string `json:"url"`
}

// presignGet hands out a short-lived download URL for an object the caller
// owns.
func (handler *Handler) presignGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	var req presignGetRequest
	if err := decodeJSON(r, &req); err != nil {
		handler.writeError(w, r, err)
		return
	}
	if req.Key == "" {
		handler.writeError(w, r, newMissingFieldsError("key is required"))
		return
	}

	if _, err := handler.authorize(ctx, creatorID, req.Key); err != nil {
		handler.writeError(w, r, err)
		return
	}

	url, err := handler.config.Store.PresignGet(ctx, req.Key)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	handler.writeJSON(w, http.StatusOK, presignGetResponse{
		OK:  true,
		URL: url,
	})
}

type listMediaRequest struct {
	Prefix string `json:"prefix"`
}

type listMediaResponse struct {
	OK     bool     `json:"ok"`
	Bucket string   `json:"bucket"`
	Prefix string   `json:"prefix"`
	Count  int      `json:"count"`
	Keys   []string `json:"keys"`
}

// listMedia enumerates the caller's objects under a prefix. The prefix
// must resolve to a channel the caller owns, so the listing can never
// escape into another creator's keys.
func (handler *Handler) listMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	var req listMediaRequest
	if err := decodeJSON(r, &req); err != nil {
		handler.writeError(w, r, err)
		return
	}
	if req.Prefix == "" {
		handler.writeError(w, r, newMissingFieldsError("prefix is required"))
		return
	}

	if _, err := handler.authorize(ctx, creatorID, req.Prefix); err != nil {
		handler.writeError(w, r, err)
		return
	}

	keys, err := handler.config.Store.ListKeys(ctx, req.Prefix, handler.config.ListMaxKeys)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}

	handler.writeJSON(w, http.StatusOK, listMediaResponse{
		OK:     true,
		Bucket: handler.config.Bucket,
		Prefix: req.Prefix,
		Count:  len(keys),
		Keys:   keys,
	})
}

type storageHealthResponse struct {
	OK         bool     `json:"ok"`
	Bucket     string   `json:"bucket"`
	SampleKeys []string `json:"sampleKeys"`
}

// storageHealth probes the object store with a tiny listing. It is
// unauthenticated so that load balancers can poll it.
func (handler *Handler) storageHealth(w http.ResponseWriter, r *http.Request) {
	keys, err := handler.config.Store.ListKeys(r.Context(), "", 5)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}

	handler.writeJSON(w, http.StatusOK, storageHealthResponse{
		OK:         true,
		Bucket:     handler.config.Bucket,
		SampleKeys: keys,
	})
}

type whoamiResponse struct {
	OK   bool   `json:"ok"`
	User string `json:"user"`
}

// whoami echoes the creator id the authenticator resolved, so clients can
// verify their token before starting a large upload.
func (handler *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	handler.writeJSON(w, http.StatusOK, whoamiResponse{
		OK:   true,
		User: creatorID,
	})
}

type debugChannelsResponse struct {
	OK       bool            `json:"ok"`
	Count    int             `json:"count"`
	Channels []guard.Channel `json:"channels"`
}

// debugChannels lists the caller's own channels. Mounted only when the
// channel store supports enumeration.
func (handler *Handler) debugChannels(w http.ResponseWriter, r *http.Request) {
	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	lister, ok := handler.config.Channels.(ChannelLister)
	if !ok {
		http.NotFound(w, r)
		return
	}

	channels, err := lister.ListByCreator(r.Context(), creatorID)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}
	if channels == nil {
		channels = []guard.Channel{}
	}

	handler.writeJSON(w, http.StatusOK, debugChannelsResponse{
		OK:       true,
		Count:    len(channels),
		Channels: channels,
	})
}
