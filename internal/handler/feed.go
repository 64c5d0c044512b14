package handler

import (
	"log"
	"net/http"

	"instagen/internal/httputil"
	"instagen/internal/store"
	"instagen/internal/sync"
	"instagen/internal/transport/http/middleware"
)

// FeedHandler renders the cached feeds and triggers reloads.
type FeedHandler struct {
	store      *store.Store
	controller *sync.Controller
	pageSize   int
}

func NewFeedHandler(st *store.Store, controller *sync.Controller, pageSize int) *FeedHandler {
	return &FeedHandler{
		store:      st,
		controller: controller,
		pageSize:   pageSize,
	}
}

// GetFeed handles GET /feed
// Returns the post feed as the cache currently holds it, newest first.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.Posts())
}

// GetReels handles GET /reels
func (h *FeedHandler) GetReels(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.Reels())
}

// GetStories handles GET /stories
func (h *FeedHandler) GetStories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.Stories())
}

// Refresh handles POST /feed/refresh
// Re-fetches posts, reels and stories from the backend and replaces the
// cache wholesale.
func (h *FeedHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.controller.LoadSession(r.Context(), h.pageSize); err != nil {
		log.Printf("[ERROR] Refresh handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, sync.MsgLoadFailed)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
