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

// ProfileHandler exposes the session profile, user search and follow
// mutations.
type ProfileHandler struct {
	controller *sync.Controller
	store      *store.Store
}

func NewProfileHandler(controller *sync.Controller, st *store.Store) *ProfileHandler {
	return &ProfileHandler{
		controller: controller,
		store:      st,
	}
}

type profileResponse struct {
	model.UserProfile
	TotalLikes    int          `json:"total_likes"`
	TotalComments int          `json:"total_comments"`
	Posts         []model.Post `json:"posts"`
	Reels         []model.Reel `json:"reels"`
}

// GetProfile handles GET /profile
// Returns the session profile with the engagement totals recomputed from the
// authoritative post list.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.store.Profile()
	if !ok {
		httputil.WriteNotFound(w, "No active session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profileResponse{
		UserProfile:   profile,
		TotalLikes:    h.store.TotalLikes(profile.ID),
		TotalComments: h.store.TotalComments(profile.ID),
		Posts:         h.store.PostsByUser(profile.ID),
		Reels:         h.store.ReelsByUser(profile.ID),
	})
}

// UpdateProfile handles PUT /profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.controller.UpdateProfile(r.Context(), req); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "No active session")
			return
		}
		log.Printf("[ERROR] Update profile handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, sync.MsgUpdateProfileFailed)
		return
	}

	profile, _ := h.store.Profile()
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// SearchUsers handles GET /users/search?q=
func (h *ProfileHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteJSON(w, http.StatusOK, []sync.SearchResult{})
		return
	}

	results, err := h.controller.SearchUsers(r.Context(), query)
	if err != nil {
		httputil.WriteInternalError(w, sync.MsgSearchFailed)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

// Follow handles POST /users/{id}/follow
func (h *ProfileHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == userID {
		httputil.WriteBadRequest(w, "Cannot follow yourself")
		return
	}

	if err := h.controller.Follow(r.Context(), targetID); err != nil {
		httputil.WriteInternalError(w, sync.MsgFollowFailed)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"following": true})
}

// Unfollow handles DELETE /users/{id}/follow
func (h *ProfileHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "id")
	if err := h.controller.Unfollow(r.Context(), targetID); err != nil {
		httputil.WriteInternalError(w, sync.MsgUnfollowFailed)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"following": false})
}
