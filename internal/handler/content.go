package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"instagen/internal/httputil"
	"instagen/internal/model"
	"instagen/internal/store"
	"instagen/internal/sync"
	"instagen/internal/transport/http/middleware"
)

// ContentHandler exposes the optimistic content mutations: create, delete,
// like and comment. Responses render the cache state after the mutation
// settles, so a reverted mutation reads back exactly as before it.
type ContentHandler struct {
	controller *sync.Controller
	store      *store.Store
}

func NewContentHandler(controller *sync.Controller, st *store.Store) *ContentHandler {
	return &ContentHandler{
		controller: controller,
		store:      st,
	}
}

type createPostRequest struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

// CreatePost handles POST /posts
func (h *ContentHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.ImageURL == "" {
		httputil.WriteBadRequest(w, "image_url is required")
		return
	}

	id, err := h.controller.CreatePost(r.Context(), req.ImageURL, req.Caption)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCaptionTooLong):
			httputil.WriteBadRequest(w, "Caption too long (max 2200 characters)")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteUnauthorized(w, "No active session")
		default:
			log.Printf("[ERROR] Create post handler: user=%s err=%v", userID, err)
			httputil.WriteInternalError(w, sync.MsgCreatePostFailed)
		}
		return
	}

	post, _ := h.store.FindPost(id)
	httputil.WriteJSON(w, http.StatusCreated, post)
}

type createReelRequest struct {
	VideoURL string `json:"video_url"`
	Caption  string `json:"caption"`
	Prompt   string `json:"prompt"`
}

// CreateReel handles POST /reels
func (h *ContentHandler) CreateReel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req createReelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.VideoURL == "" {
		httputil.WriteBadRequest(w, "video_url is required")
		return
	}

	id, err := h.controller.CreateReel(r.Context(), req.VideoURL, req.Caption, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCaptionTooLong):
			httputil.WriteBadRequest(w, "Caption too long (max 2200 characters)")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteUnauthorized(w, "No active session")
		default:
			log.Printf("[ERROR] Create reel handler: user=%s err=%v", userID, err)
			httputil.WriteInternalError(w, sync.MsgCreateReelFailed)
		}
		return
	}

	reel, _ := h.store.FindReel(id)
	httputil.WriteJSON(w, http.StatusCreated, reel)
}

type createStoryRequest struct {
	ImageURL string `json:"image_url"`
}

// CreateStory handles POST /stories
func (h *ContentHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req createStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.ImageURL == "" {
		httputil.WriteBadRequest(w, "image_url is required")
		return
	}

	if _, err := h.controller.CreateStory(r.Context(), req.ImageURL); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteUnauthorized(w, "No active session")
			return
		}
		log.Printf("[ERROR] Create story handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, sync.MsgCreateStoryFailed)
		return
	}

	story, _ := h.store.FindUserStory(userID)
	httputil.WriteJSON(w, http.StatusCreated, story)
}

// DeletePost handles DELETE /posts/{id}
func (h *ContentHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID := chi.URLParam(r, "id")
	if err := h.controller.DeletePost(r.Context(), postID); err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] Delete post handler: user=%s post=%s err=%v", userID, postID, err)
			httputil.WriteInternalError(w, sync.MsgDeletePostFailed)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleLike handles POST /posts/{id}/like and POST /reels/{id}/like
// Flips the viewer's like; the response carries the settled entity.
func (h *ContentHandler) ToggleLike(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.toggleLike(w, r, kind)
	}
}

func (h *ContentHandler) toggleLike(w http.ResponseWriter, r *http.Request, kind model.ContentKind) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	contentID := chi.URLParam(r, "id")
	if err := h.controller.ToggleLike(r.Context(), kind, contentID); err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound), errors.Is(err, model.ErrReelNotFound):
			httputil.WriteNotFound(w, "Content not found")
		default:
			httputil.WriteInternalError(w, sync.MsgLikeFailed)
		}
		return
	}

	h.writeContent(w, kind, contentID)
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// AddComment handles POST /posts/{id}/comments and POST /reels/{id}/comments
func (h *ContentHandler) AddComment(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.addComment(w, r, kind)
	}
}

func (h *ContentHandler) addComment(w http.ResponseWriter, r *http.Request, kind model.ContentKind) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	contentID := chi.URLParam(r, "id")

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.controller.AddComment(r.Context(), kind, contentID, req.Text); err != nil {
		switch {
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment text is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment too long (max 2200 characters)")
		default:
			httputil.WriteInternalError(w, sync.MsgCommentFailed)
		}
		return
	}

	h.writeContent(w, kind, contentID)
}

// MarkStoriesSeen handles POST /stories/{userId}/seen
func (h *ContentHandler) MarkStoriesSeen(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	ownerID := chi.URLParam(r, "userId")
	h.controller.MarkStoriesSeen(ownerID)

	if story, ok := h.store.FindUserStory(ownerID); ok {
		httputil.WriteJSON(w, http.StatusOK, story)
		return
	}
	httputil.WriteNotFound(w, "Story not found")
}

// writeContent renders whichever collection holds the id. The entity may be
// gone when the id raced with a removal; that still answers 200 with null so
// a reverted comment on a deleted target is not an error.
func (h *ContentHandler) writeContent(w http.ResponseWriter, kind model.ContentKind, contentID string) {
	switch kind {
	case model.KindPost:
		if post, ok := h.store.FindPost(contentID); ok {
			httputil.WriteJSON(w, http.StatusOK, post)
			return
		}
		if reel, ok := h.store.FindReel(contentID); ok {
			httputil.WriteJSON(w, http.StatusOK, reel)
			return
		}
	case model.KindReel:
		if reel, ok := h.store.FindReel(contentID); ok {
			httputil.WriteJSON(w, http.StatusOK, reel)
			return
		}
		if post, ok := h.store.FindPost(contentID); ok {
			httputil.WriteJSON(w, http.StatusOK, post)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}
