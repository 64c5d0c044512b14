package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"instagen/internal/model"
	"instagen/internal/persist"
)

// CreatePost inserts a post and bumps the author's post count in one
// transaction. The returned post carries the server-assigned id and the
// author's display fields.
func (b *Backend) CreatePost(ctx context.Context, authorID, imageURL, caption string) (*model.Post, error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persist.Failure("create-post", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	var row postRow
	query := `
		WITH inserted AS (
			INSERT INTO posts (user_id, image_url, caption)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, image_url, caption, like_count
		)
		SELECT i.id, i.user_id, u.username, u.avatar_url, i.image_url, i.caption, i.like_count
		FROM inserted i
		JOIN users u ON u.id = i.user_id
	`
	if err := tx.GetContext(ctx, &row, query, authorID, imageURL, caption); err != nil {
		return nil, persist.Failure("create-post", fmt.Errorf("insert post: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET post_count = post_count + 1 WHERE id = $1`, authorID); err != nil {
		return nil, persist.Failure("create-post", fmt.Errorf("increment post count: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, persist.Failure("create-post", fmt.Errorf("commit transaction: %w", err))
	}

	return &model.Post{
		ID:        row.ID,
		UserID:    row.UserID,
		Username:  row.Username,
		AvatarURL: row.AvatarURL,
		ImageURL:  row.ImageURL,
		Caption:   row.Caption,
		Likes:     row.LikeCount,
		Comments:  []model.Comment{},
	}, nil
}

// CreateReel inserts a reel with its audio attribution and generation prompt.
func (b *Backend) CreateReel(ctx context.Context, authorID, videoURL, caption, prompt string) (*model.Reel, error) {
	var row reelRow
	query := `
		WITH inserted AS (
			INSERT INTO reels (user_id, video_url, caption, audio_author, audio_title, prompt)
			SELECT $1, $2, $3, u.username, 'Original Audio', $4
			FROM users u WHERE u.id = $1
			RETURNING id, user_id, video_url, caption, audio_author, audio_title, prompt, like_count
		)
		SELECT i.id, i.user_id, u.username, u.avatar_url, i.video_url, i.caption,
		       i.audio_author, i.audio_title, i.prompt, i.like_count
		FROM inserted i
		JOIN users u ON u.id = i.user_id
	`
	if err := b.db.GetContext(ctx, &row, query, authorID, videoURL, caption, prompt); err != nil {
		return nil, persist.Failure("create-reel", fmt.Errorf("insert reel: %w", err))
	}

	return &model.Reel{
		ID:        row.ID,
		UserID:    row.UserID,
		Username:  row.Username,
		AvatarURL: row.AvatarURL,
		VideoURL:  row.VideoURL,
		Caption:   row.Caption,
		Likes:     row.LikeCount,
		Comments:  []model.Comment{},
		Audio:     model.ReelAudio{Author: row.AudioAuthor, Title: row.AudioTitle},
		Prompt:    row.Prompt,
	}, nil
}

// CreateStory inserts a story item expiring after the story TTL.
func (b *Backend) CreateStory(ctx context.Context, authorID, imageURL string) (*model.StoryItem, error) {
	var row struct {
		ID        string    `db:"id"`
		ImageURL  string    `db:"image_url"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := `
		INSERT INTO stories (user_id, image_url, expires_at)
		VALUES ($1, $2, NOW() + $3::interval)
		RETURNING id, image_url, created_at
	`
	interval := fmt.Sprintf("%d seconds", int(model.StoryTTL.Seconds()))
	if err := b.db.GetContext(ctx, &row, query, authorID, imageURL, interval); err != nil {
		return nil, persist.Failure("create-story", fmt.Errorf("insert story: %w", err))
	}

	return &model.StoryItem{
		ID:        row.ID,
		ImageURL:  row.ImageURL,
		CreatedAt: row.CreatedAt,
		Duration:  model.StoryDuration,
	}, nil
}

// DeletePost removes a post owned by the session user and decrements their
// post count. The likes and comments rows go with it via FK cascade.
func (b *Backend) DeletePost(ctx context.Context, postID string) error {
	viewer, ok := persist.ViewerFromContext(ctx)
	if !ok {
		return persist.Failure("delete-post", model.ErrInvalidCredentials)
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return persist.Failure("delete-post", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	var imageURL string
	err = tx.GetContext(ctx, &imageURL, `DELETE FROM posts WHERE id = $1 AND user_id = $2 RETURNING image_url`, postID, viewer)
	if err == sql.ErrNoRows {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID); err != nil {
			return persist.Failure("delete-post", fmt.Errorf("check post: %w", err))
		}
		if exists {
			return persist.Failure("delete-post", model.ErrNotPostOwner)
		}
		return persist.Failure("delete-post", model.ErrPostNotFound)
	}
	if err != nil {
		return persist.Failure("delete-post", fmt.Errorf("delete post: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET post_count = GREATEST(post_count - 1, 0) WHERE id = $1
	`, viewer); err != nil {
		return persist.Failure("delete-post", fmt.Errorf("decrement post count: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return persist.Failure("delete-post", fmt.Errorf("commit transaction: %w", err))
	}

	// Drop the orphaned media object; best-effort after the row is gone.
	if b.blobs != nil {
		if key := b.blobs.KeyForURL(imageURL); key != "" {
			if err := b.blobs.DeleteObject(ctx, key); err != nil {
				log.Printf("[RemoteBackend] Orphaned media cleanup failed: key=%s err=%v", key, err)
			}
		}
	}
	return nil
}
