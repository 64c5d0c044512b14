package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"instagen/internal/genmedia"
	"instagen/internal/httputil"
	"instagen/internal/model"
	"instagen/internal/persist"
	"instagen/internal/transport/http/middleware"
)

// MediaHandler covers media upload and generative media. Generation runs off
// the mutation path: clients call these first and then create content with
// the returned reference.
type MediaHandler struct {
	backend persist.Backend
	gen     *genmedia.Client
}

func NewMediaHandler(backend persist.Backend, gen *genmedia.Client) *MediaHandler {
	return &MediaHandler{
		backend: backend,
		gen:     gen,
	}
}

// Upload handles POST /media/{folder}
// Accepts the raw payload and returns the durable reference.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	folder := r.URL.Query().Get("folder")
	switch folder {
	case model.AvatarFolder, model.PostFolder, model.ReelFolder, model.StoryFolder:
	default:
		httputil.WriteBadRequest(w, "Unknown media folder")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxMediaSizeBytes+1024)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequest(w, "Failed to read payload")
		return
	}

	result, err := h.backend.UploadMedia(r.Context(), model.UploadInput{
		Data:        data,
		ContentType: r.Header.Get("Content-Type"),
		Folder:      folder,
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, "File exceeds 10MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequest(w, "Unsupported image type. Allowed: jpeg, png, webp")
		default:
			log.Printf("[ERROR] Upload handler: user=%s folder=%s err=%v", userID, folder, err)
			httputil.WriteInternalError(w, "Failed to upload media")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, result)
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

type generateImageResponse struct {
	ImageRef string `json:"image_ref"`
}

// GenerateImage handles POST /media/generate/image
// Returns the generated image as an inline data: reference ready for a
// create flow.
func (h *MediaHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.gen == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, httputil.ErrCodeInternal, "Media generation is not configured")
		return
	}

	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		httputil.WriteBadRequest(w, "prompt is required")
		return
	}

	data, err := h.gen.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		log.Printf("[ERROR] GenerateImage handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to generate image")
		return
	}

	ref := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(data))
	httputil.WriteJSON(w, http.StatusOK, generateImageResponse{ImageRef: ref})
}

type generateVideoRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// GenerateVideo handles POST /media/generate/video
// Video generation runs for minutes, so the response is a server-sent event
// stream: progress events as the operation advances, then one done event
// carrying the media reference. Closing the connection cancels generation.
func (h *MediaHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.gen == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, httputil.ErrCodeInternal, "Media generation is not configured")
		return
	}

	var req generateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		httputil.WriteBadRequest(w, "prompt is required")
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "9:16"
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteInternalError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	progress := func(message string) {
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", message)
		flusher.Flush()
	}

	ref, err := h.gen.GenerateVideo(r.Context(), req.Prompt, req.AspectRatio, progress)
	if err != nil {
		log.Printf("[ERROR] GenerateVideo handler: err=%v", err)
		fmt.Fprintf(w, "event: error\ndata: Failed to generate video\n\n")
		flusher.Flush()
		return
	}

	payload, _ := json.Marshal(map[string]string{"video_ref": ref})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
	flusher.Flush()
}
