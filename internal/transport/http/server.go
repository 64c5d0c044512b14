package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instagen/internal/cache"
	"instagen/internal/config"
	"instagen/internal/database"
	"instagen/internal/genmedia"
	"instagen/internal/handler"
	"instagen/internal/persist"
	"instagen/internal/persist/localkv"
	"instagen/internal/persist/remote"
	"instagen/internal/repository"
	"instagen/internal/service"
	"instagen/internal/store"
	"instagen/internal/sync"
)

// Run wires the whole application and serves until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st := store.New()

	var backend persist.Backend
	var users repository.UserRepository
	var syncer *localkv.Syncer
	var likes *cache.LikeCache

	switch cfg.PersistMode {
	case config.PersistModeRemote:
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if cfg.RedisURL != "" {
			likes, err = cache.NewLikeCache(cfg.RedisURL)
			if err != nil {
				log.Printf("[Server] Like cache unavailable, falling back to database lookups: %v", err)
			} else if err := pingLikeCache(likes); err != nil {
				// Fail fast to the database path instead of per-request.
				log.Printf("[Server] Like cache unreachable, falling back to database lookups: %v", err)
				likes.Close()
				likes = nil
			} else {
				defer likes.Close()
			}
		}

		blobs, err := remote.NewBlobStore(context.Background(), cfg)
		if err != nil {
			log.Printf("[Server] Blob store unavailable, media uploads disabled: %v", err)
			blobs = nil
		}

		backend = remote.New(db, blobs, likes)
		users = repository.NewUserRepository(db)

	case config.PersistModeLocal:
		kv, err := localkv.OpenKV(cfg.LocalStorePath, cfg.LocalQuotaBytes)
		if err != nil {
			return fmt.Errorf("failed to open device store: %w", err)
		}
		defer kv.Close()

		// Rehydrate the previous session before any handler can read.
		warmStore(kv, st)

		backend = localkv.NewBackend(kv, st)
		users, err = localkv.NewUserStore(kv)
		if err != nil {
			return fmt.Errorf("failed to init account store: %w", err)
		}

		syncer = localkv.NewSyncer(kv, st, func(message string) {
			log.Printf("[Server] Durability warning: %s", message)
		})

	default:
		return fmt.Errorf("unknown persist mode %q", cfg.PersistMode)
	}

	controller := sync.New(st, backend, nil)

	var gen *genmedia.Client
	if cfg.GeminiAPIKey != "" {
		gen = genmedia.NewClient(cfg.GeminiAPIKey)
	} else {
		log.Println("[Server] GEMINI_API_KEY not set; media generation endpoints disabled")
	}

	authService := service.NewAuthService(users, cfg)

	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(authService, controller, st, cfg, likes),
		FeedHandler:    handler.NewFeedHandler(st, controller, cfg.FeedPageSize),
		ContentHandler: handler.NewContentHandler(controller, st),
		ProfileHandler: handler.NewProfileHandler(controller, st),
		MediaHandler:   handler.NewMediaHandler(backend, gen),
		JWTSecret:      cfg.JWTSecret,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if syncer != nil {
		syncer.Start(ctx)
		defer syncer.Stop()
	}

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s (persist=%s)", cfg.ServerPort, cfg.PersistMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pingLikeCache(likes *cache.LikeCache) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return likes.Ping(ctx)
}

// warmStore loads the persisted snapshots into the cache. Load failures are
// not fatal: the session simply starts empty.
func warmStore(kv *localkv.KV, st *store.Store) {
	if posts, err := kv.LoadPosts(); err != nil {
		log.Printf("[Server] Failed to load persisted posts: %v", err)
	} else if len(posts) > 0 {
		st.ReplaceAllPosts(posts)
	}

	if reels, err := kv.LoadReels(); err != nil {
		log.Printf("[Server] Failed to load persisted reels: %v", err)
	} else if len(reels) > 0 {
		st.ReplaceAllReels(reels)
	}

	if stories, err := kv.LoadStories(); err != nil {
		log.Printf("[Server] Failed to load persisted stories: %v", err)
	} else if len(stories) > 0 {
		st.ReplaceAllStories(stories)
	}

	if profile, err := kv.LoadProfile(); err != nil {
		log.Printf("[Server] Failed to load persisted profile: %v", err)
	} else if profile != nil {
		st.SetProfile(*profile)
	}
}
