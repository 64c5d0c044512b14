// Package remote implements the persistence backend against Postgres and an
// S3-compatible blob store, with a Redis fast path for like-status
// annotation.
package remote

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"instagen/internal/cache"
	"instagen/internal/model"
	"instagen/internal/persist"
)

// Backend talks to the remote source of truth. It satisfies persist.Backend.
type Backend struct {
	db    *sqlx.DB
	blobs *BlobStore
	likes *cache.LikeCache // nil disables the annotation fast path
}

func New(db *sqlx.DB, blobs *BlobStore, likes *cache.LikeCache) *Backend {
	return &Backend{db: db, blobs: blobs, likes: likes}
}

// postRow is the feed query shape: post columns joined with author display
// fields.
type postRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Username  string `db:"username"`
	AvatarURL string `db:"avatar_url"`
	ImageURL  string `db:"image_url"`
	Caption   string `db:"caption"`
	LikeCount int    `db:"like_count"`
}

type reelRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Username    string `db:"username"`
	AvatarURL   string `db:"avatar_url"`
	VideoURL    string `db:"video_url"`
	Caption     string `db:"caption"`
	AudioAuthor string `db:"audio_author"`
	AudioTitle  string `db:"audio_title"`
	Prompt      string `db:"prompt"`
	LikeCount   int    `db:"like_count"`
}

// FetchFeed loads the post feed newest first. When an authenticated session
// exists, a second query annotates each post with the viewer's like status;
// that step is best-effort and never fails the fetch.
func (b *Backend) FetchFeed(ctx context.Context, limit, offset int) ([]model.Post, error) {
	query := `
		SELECT p.id, p.user_id, u.username, u.avatar_url, p.image_url, p.caption, p.like_count
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2
	`
	var rows []postRow
	if err := b.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, persist.Failure("fetch-feed", fmt.Errorf("select posts: %w", err))
	}

	posts := make([]model.Post, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		posts[i] = model.Post{
			ID:        r.ID,
			UserID:    r.UserID,
			Username:  r.Username,
			AvatarURL: r.AvatarURL,
			ImageURL:  r.ImageURL,
			Caption:   r.Caption,
			Likes:     r.LikeCount,
			Comments:  []model.Comment{},
		}
		ids[i] = r.ID
	}

	if viewer, ok := persist.ViewerFromContext(ctx); ok && len(ids) > 0 {
		liked, err := b.checkLikes(ctx, viewer, model.KindPost, ids)
		if err != nil {
			// Annotation is best-effort: log and return unannotated data.
			log.Printf("[RemoteBackend] Like annotation failed for viewer=%s: %v", viewer, err)
		} else {
			for i := range posts {
				posts[i].IsLiked = liked[posts[i].ID]
			}
		}
	}

	return posts, nil
}

// FetchReelsFeed mirrors FetchFeed for the reels collection.
func (b *Backend) FetchReelsFeed(ctx context.Context, limit, offset int) ([]model.Reel, error) {
	query := `
		SELECT r.id, r.user_id, u.username, u.avatar_url, r.video_url, r.caption,
		       r.audio_author, r.audio_title, r.prompt, r.like_count
		FROM reels r
		JOIN users u ON u.id = r.user_id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $1 OFFSET $2
	`
	var rows []reelRow
	if err := b.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, persist.Failure("fetch-reels-feed", fmt.Errorf("select reels: %w", err))
	}

	reels := make([]model.Reel, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		reels[i] = model.Reel{
			ID:        r.ID,
			UserID:    r.UserID,
			Username:  r.Username,
			AvatarURL: r.AvatarURL,
			VideoURL:  r.VideoURL,
			Caption:   r.Caption,
			Likes:     r.LikeCount,
			Comments:  []model.Comment{},
			Audio:     model.ReelAudio{Author: r.AudioAuthor, Title: r.AudioTitle},
			Prompt:    r.Prompt,
		}
		ids[i] = r.ID
	}

	if viewer, ok := persist.ViewerFromContext(ctx); ok && len(ids) > 0 {
		liked, err := b.checkLikes(ctx, viewer, model.KindReel, ids)
		if err != nil {
			log.Printf("[RemoteBackend] Reel like annotation failed for viewer=%s: %v", viewer, err)
		} else {
			for i := range reels {
				reels[i].IsLiked = liked[reels[i].ID]
			}
		}
	}

	return reels, nil
}

// FetchActiveStories returns unexpired stories grouped by author, newest
// author first.
func (b *Backend) FetchActiveStories(ctx context.Context) ([]model.UserStory, error) {
	type storyRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Username  string    `db:"username"`
		AvatarURL string    `db:"avatar_url"`
		ImageURL  string    `db:"image_url"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := `
		SELECT s.id, s.user_id, u.username, u.avatar_url, s.image_url, s.created_at
		FROM stories s
		JOIN users u ON u.id = s.user_id
		WHERE s.expires_at > NOW()
		ORDER BY s.created_at DESC
	`
	var rows []storyRow
	if err := b.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, persist.Failure("fetch-active-stories", fmt.Errorf("select stories: %w", err))
	}

	// Group by author, preserving first-seen (newest) order.
	index := make(map[string]int)
	var grouped []model.UserStory
	for _, r := range rows {
		i, ok := index[r.UserID]
		if !ok {
			i = len(grouped)
			index[r.UserID] = i
			grouped = append(grouped, model.UserStory{
				UserID:           r.UserID,
				Username:         r.Username,
				AvatarURL:        r.AvatarURL,
				HasUnseenStories: true,
			})
		}
		grouped[i].Stories = append(grouped[i].Stories, model.StoryItem{
			ID:        r.ID,
			ImageURL:  r.ImageURL,
			CreatedAt: r.CreatedAt,
			Duration:  model.StoryDuration,
		})
	}
	return grouped, nil
}

// checkLikes reports which of the given content ids the viewer has liked.
// Tries the Redis liked-set first and falls back to Postgres.
func (b *Backend) checkLikes(ctx context.Context, viewerID string, kind model.ContentKind, ids []string) (map[string]bool, error) {
	if b.likes != nil {
		liked, err := b.likes.CheckLiked(ctx, viewerID, kind, ids)
		if err == nil {
			return liked, nil
		}
		log.Printf("[RemoteBackend] Like cache miss path: %v", err)
	}

	column := "post_id"
	if kind == model.KindReel {
		column = "reel_id"
	}
	query := fmt.Sprintf(`SELECT %s FROM likes WHERE user_id = $1 AND %s = ANY($2)`, column, column)
	var likedIDs []string
	if err := b.db.SelectContext(ctx, &likedIDs, query, viewerID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}

	result := make(map[string]bool, len(ids))
	for _, id := range likedIDs {
		result[id] = true
	}

	if b.likes != nil {
		// Repopulate the cache for the next fetch; best-effort.
		if err := b.likes.WarmLiked(ctx, viewerID, kind, likedIDs); err != nil {
			log.Printf("[RemoteBackend] Like cache warm failed: %v", err)
		}
	}
	return result, nil
}
