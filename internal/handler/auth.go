package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"instagen/internal/cache"
	"instagen/internal/config"
	"instagen/internal/httputil"
	"instagen/internal/model"
	"instagen/internal/persist"
	"instagen/internal/service"
	"instagen/internal/store"
	"instagen/internal/sync"
	"instagen/internal/transport/http/middleware"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	authService *service.AuthService
	controller  *sync.Controller
	store       *store.Store
	config      *config.Config
	likes       *cache.LikeCache // nil when no annotation cache is configured
}

// NewAuthHandler wires dependencies for authentication endpoints. likes may
// be nil.
func NewAuthHandler(authService *service.AuthService, controller *sync.Controller, st *store.Store, cfg *config.Config, likes *cache.LikeCache) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		controller:  controller,
		store:       st,
		config:      cfg,
		likes:       likes,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrUsernameExists) {
			httputil.WriteConflict(w, "Username already exists")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

type loginResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresIn   int               `json:"expires_in"`
	User        model.UserProfile `json:"user"`
}

// Login handles POST /auth/login
// On success the session profile is seeded into the store and the initial
// feed load kicks off with the new viewer identity.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid username or password")
			return
		}
		log.Printf("[ERROR] Login handler: user=%s err=%v", req.Username, err)
		httputil.WriteInternalError(w, "Failed to log in")
		return
	}

	token, err := h.authService.GenerateAccessToken(user.ID)
	if err != nil {
		log.Printf("[ERROR] Login handler: token generation for user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		MaxAge:   h.config.AccessTokenMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	profile := user.Profile()
	h.store.SetProfile(profile)

	viewerCtx := persist.WithViewer(r.Context(), user.ID)
	if err := h.controller.LoadSession(viewerCtx, h.config.FeedPageSize); err != nil {
		// login still succeeds; the feed can be refreshed later
		log.Printf("[Auth] Initial content load failed for user=%s: %v", user.ID, err)
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		ExpiresIn:   h.config.AccessTokenMaxAge,
		User:        profile,
	})
}

// Me handles GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.store.Profile()
	if !ok {
		httputil.WriteNotFound(w, "No active session")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Logout handles POST /auth/logout
// The viewer's liked-set cache is dropped with the session; the next login
// rewarms it from the database.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok && h.likes != nil {
		if err := h.likes.Invalidate(r.Context(), userID); err != nil {
			log.Printf("[Auth] Like cache invalidation failed for user=%s: %v", userID, err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
