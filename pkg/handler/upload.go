package handler

import (
	"encoding/json"
	"net/http"

	"github.com/castkit/uploadd/pkg/objstore"
)

type initiateRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

type initiateResponse struct {
	OK       bool   `json:"ok"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

// initiateUpload opens a multipart session for a key the caller owns.
func (handler *Handler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	var req initiateRequest
	if err := decodeJSON(r, &req); err != nil {
		handler.writeError(w, r, err)
		return
	}
	if req.Key == "" || req.ContentType == "" {
		handler.writeError(w, r, newMissingFieldsError("key and contentType are required"))
		return
	}

	if _, err := handler.authorize(ctx, creatorID, req.Key); err != nil {
		handler.writeError(w, r, err)
		return
	}

	uploadID, err := handler.config.Store.InitiateUpload(ctx, req.Key, req.ContentType)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	handler.Metrics.UploadsInitiated.Inc()
	handler.logger.Info().
		Str("key", req.Key).
		Str("uploadId", uploadID).
		Str("creator", creatorID).
		Msg("UploadInitiated")

	handler.writeJSON(w, http.StatusOK, initiateResponse{
		OK:       true,
		Bucket:   handler.config.Bucket,
		Key:      req.Key,
		UploadID: uploadID,
	})
}

type presignPartRequest struct {
	Key        string      `json:"key"`
	UploadID   string      `json:"uploadId"`
	PartNumber json.Number `json:"partNumber"`
}

type presignPartResponse struct {
	OK  bool   `json:"ok"`
	URL string `json:"url"`
}

// presignPart hands out a short-lived URL for uploading one part. The
// ownership guard runs again here: the upload id alone proves nothing.
func (handler *Handler) presignPart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	var req presignPartRequest
	if err := decodeJSON(r, &req); err != nil {
		handler.writeError(w, r, err)
		return
	}
	if req.Key == "" || req.UploadID == "" || req.PartNumber == "" {
		handler.writeError(w, r, newMissingFieldsError("key, uploadId and partNumber are required"))
		return
	}

	partNumber, err := req.PartNumber.Int64()
	if err != nil || partNumber < 1 || partNumber > objstore.MaxMultipartParts {
		handler.writeError(w, r, ErrInvalidPartNumber)
		return
	}

	if _, err := handler.authorize(ctx, creatorID, req.Key); err != nil {
		handler.writeError(w, r, err)
		return
	}

	url, err := handler.config.Store.PresignPart(ctx, req.Key, req.UploadID, int32(partNumber))
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	handler.Metrics.PartsPresigned.Inc()

	handler.writeJSON(w, http.StatusOK, presignPartResponse{
		OK:  true,
		URL: url,
	})
}

type completeRequest struct {
	Key      string                   `json:"key"`
	UploadID string                   `json:"uploadId"`
	Parts    []objstore.CompletedPart `json:"parts"`
}

type completeResponse struct {
	OK     bool                     `json:"ok"`
	Result *objstore.CompleteResult `json:"result"`
}

// completeUpload finalizes a session from the client's accumulated part
// list. The parts are validated here but ordered by the gateway.
func (handler *Handler) completeUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		handler.writeError(w, r, err)
		return
	}
	if req.Key == "" || req.UploadID == "" || len(req.Parts) == 0 {
		handler.writeError(w, r, newMissingFieldsError("key, uploadId and a non-empty parts list are required"))
		return
	}
	for _, part := range req.Parts {
		if part.PartNumber < 1 || part.PartNumber > objstore.MaxMultipartParts || part.ETag == "" {
			handler.writeError(w, r, ErrInvalidPartList)
			return
		}
	}

	if _, err := handler.authorize(ctx, creatorID, req.Key); err != nil {
		handler.writeError(w, r, err)
		return
	}

	result, err := handler.config.Store.CompleteUpload(ctx, req.Key, req.UploadID, req.Parts)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	handler.Metrics.UploadsCompleted.Inc()
	handler.logger.Info().
		Str("key", req.Key).
		Str("uploadId", req.UploadID).
		Int("parts", len(req.Parts)).
		Str("creator", creatorID).
		Msg("UploadCompleted")

	handler.writeJSON(w, http.StatusOK, completeResponse{
		OK:     true,
		Result: result,
	})
}

type abortRequest struct {
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// abortUpload discards a session so the storage provider can reclaim the
// parts uploaded so far. Aborting an already-gone session succeeds.
func (handler *Handler) abortUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creatorID, err := handler.authenticate(r)
	if err != nil {
		handler.writeError(w, r, err)
		return
	}

	var req abortRequest
	if err := decodeJSON(r, &req); err != nil {
		handler.writeError(w, r, err)
		return
	}
	if req.Key == "" || req.UploadID == "" {
		handler.writeError(w, r, newMissingFieldsError("key and uploadId are required"))
		return
	}

	if _, err := handler.authorize(ctx, creatorID, req.Key); err != nil {
		handler.writeError(w, r, err)
		return
	}

	if err := handler.config.Store.AbortUpload(ctx, req.Key, req.UploadID); err != nil {
		handler.writeError(w, r, err)
		return
	}

	handler.Metrics.UploadsAborted.Inc()
	handler.logger.Info().
		Str("key", req.Key).
		Str("uploadId", req.UploadID).
		Str("creator", creatorID).
		Msg("UploadAborted")

	handler.writeJSON(w, http.StatusOK, okResponse{OK: true})
}
