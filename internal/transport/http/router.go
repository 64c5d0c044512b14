package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"instagen/internal/handler"
	"instagen/internal/httputil"
	"instagen/internal/model"
	authmw "instagen/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	FeedHandler    *handler.FeedHandler
	ContentHandler *handler.ContentHandler
	ProfileHandler *handler.ProfileHandler
	MediaHandler   *handler.MediaHandler
	JWTSecret      string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Reads work without a session; like annotation only applies when the
	// viewer is known.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/reels", cfg.FeedHandler.GetReels)
		r.Get("/stories", cfg.FeedHandler.GetStories)
		r.Get("/users/search", cfg.ProfileHandler.SearchUsers)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Get("/profile", cfg.ProfileHandler.GetProfile)
		r.Put("/profile", cfg.ProfileHandler.UpdateProfile)

		r.Post("/feed/refresh", cfg.FeedHandler.Refresh)

		// Content creation, deletion, likes and comments
		r.Post("/posts", cfg.ContentHandler.CreatePost)
		r.Delete("/posts/{id}", cfg.ContentHandler.DeletePost)
		r.Post("/posts/{id}/like", cfg.ContentHandler.ToggleLike(model.KindPost))
		r.Post("/posts/{id}/comments", cfg.ContentHandler.AddComment(model.KindPost))
		r.Post("/reels", cfg.ContentHandler.CreateReel)
		r.Post("/reels/{id}/like", cfg.ContentHandler.ToggleLike(model.KindReel))
		r.Post("/reels/{id}/comments", cfg.ContentHandler.AddComment(model.KindReel))
		r.Post("/stories", cfg.ContentHandler.CreateStory)
		r.Post("/stories/{userId}/seen", cfg.ContentHandler.MarkStoriesSeen)

		// Follow graph
		r.Post("/users/{id}/follow", cfg.ProfileHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.ProfileHandler.Unfollow)

		// Media upload and generation
		r.Post("/media", cfg.MediaHandler.Upload)
		r.Post("/media/generate/image", cfg.MediaHandler.GenerateImage)
		r.Post("/media/generate/video", cfg.MediaHandler.GenerateVideo)
	})

	return r
}
