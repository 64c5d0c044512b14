package remote

import (
	"context"
	"fmt"
	"log"

	"github.com/lib/pq"

	"instagen/internal/model"
	"instagen/internal/persist"
)

func contentTable(kind model.ContentKind) (table, likeColumn string, err error) {
	switch kind {
	case model.KindPost:
		return "posts", "post_id", nil
	case model.KindReel:
		return "reels", "reel_id", nil
	default:
		return "", "", model.ErrInvalidKind
	}
}

// Like records the viewer's like and bumps the content's counter in one
// transaction. A duplicate like fails with ErrAlreadyLiked.
func (b *Backend) Like(ctx context.Context, kind model.ContentKind, contentID string) error {
	return b.setLiked(ctx, "like", kind, contentID, true)
}

// Unlike removes the viewer's like and decrements the counter.
func (b *Backend) Unlike(ctx context.Context, kind model.ContentKind, contentID string) error {
	return b.setLiked(ctx, "unlike", kind, contentID, false)
}

func (b *Backend) setLiked(ctx context.Context, op string, kind model.ContentKind, contentID string, liked bool) error {
	viewer, ok := persist.ViewerFromContext(ctx)
	if !ok {
		return persist.Failure(op, model.ErrInvalidCredentials)
	}
	table, column, err := contentTable(kind)
	if err != nil {
		return persist.Failure(op, err)
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return persist.Failure(op, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	delta := 1
	if liked {
		query := fmt.Sprintf(`INSERT INTO likes (user_id, %s) VALUES ($1, $2)`, column)
		if _, err := tx.ExecContext(ctx, query, viewer, contentID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return persist.Failure(op, model.ErrAlreadyLiked)
			}
			return persist.Failure(op, fmt.Errorf("insert like: %w", err))
		}
	} else {
		delta = -1
		query := fmt.Sprintf(`DELETE FROM likes WHERE user_id = $1 AND %s = $2`, column)
		result, err := tx.ExecContext(ctx, query, viewer, contentID)
		if err != nil {
			return persist.Failure(op, fmt.Errorf("delete like: %w", err))
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return persist.Failure(op, model.ErrNotLiked)
		}
	}

	countQuery := fmt.Sprintf(`
		UPDATE %s SET like_count = GREATEST(like_count + $1, 0) WHERE id = $2
	`, table)
	result, err := tx.ExecContext(ctx, countQuery, delta, contentID)
	if err != nil {
		return persist.Failure(op, fmt.Errorf("update like count: %w", err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if kind == model.KindReel {
			return persist.Failure(op, model.ErrReelNotFound)
		}
		return persist.Failure(op, model.ErrPostNotFound)
	}

	if err := tx.Commit(); err != nil {
		return persist.Failure(op, fmt.Errorf("commit transaction: %w", err))
	}

	// Keep the annotation cache in step; best-effort.
	if b.likes != nil {
		if err := b.likes.SetLiked(ctx, viewer, kind, contentID, liked); err != nil {
			log.Printf("[RemoteBackend] Like cache update failed: %v", err)
		}
	}
	return nil
}

// AddComment appends a comment authored by the viewer to exactly one post or
// reel, selected by the tagged kind.
func (b *Backend) AddComment(ctx context.Context, kind model.ContentKind, contentID, text string) (*model.Comment, error) {
	viewer, ok := persist.ViewerFromContext(ctx)
	if !ok {
		return nil, persist.Failure("add-comment", model.ErrInvalidCredentials)
	}
	_, column, err := contentTable(kind)
	if err != nil {
		return nil, persist.Failure("add-comment", err)
	}

	var row struct {
		ID        string `db:"id"`
		Username  string `db:"username"`
		AvatarURL string `db:"avatar_url"`
		Text      string `db:"text"`
	}
	query := fmt.Sprintf(`
		WITH inserted AS (
			INSERT INTO comments (user_id, %s, text)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, text
		)
		SELECT i.id, u.username, u.avatar_url, i.text
		FROM inserted i
		JOIN users u ON u.id = i.user_id
	`, column)
	if err := b.db.GetContext(ctx, &row, query, viewer, contentID, text); err != nil {
		return nil, persist.Failure("add-comment", fmt.Errorf("insert comment: %w", err))
	}

	return &model.Comment{
		ID:        row.ID,
		Username:  row.Username,
		AvatarURL: row.AvatarURL,
		Text:      row.Text,
	}, nil
}

// Follow creates the directed follow edge and adjusts both users' counters.
func (b *Backend) Follow(ctx context.Context, targetUserID string) error {
	viewer, ok := persist.ViewerFromContext(ctx)
	if !ok {
		return persist.Failure("follow", model.ErrInvalidCredentials)
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return persist.Failure("follow", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO user_follows (follower_id, following_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, viewer, targetUserID)
	if err != nil {
		return persist.Failure("follow", fmt.Errorf("insert follow: %w", err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Already following; a retry must not inflate the counters.
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET follower_count = follower_count + 1 WHERE id = $1`, targetUserID); err != nil {
		return persist.Failure("follow", fmt.Errorf("increment follower count: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET following_count = following_count + 1 WHERE id = $1`, viewer); err != nil {
		return persist.Failure("follow", fmt.Errorf("increment following count: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return persist.Failure("follow", fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Unfollow removes the follow edge and adjusts counters, floored at zero.
func (b *Backend) Unfollow(ctx context.Context, targetUserID string) error {
	viewer, ok := persist.ViewerFromContext(ctx)
	if !ok {
		return persist.Failure("unfollow", model.ErrInvalidCredentials)
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return persist.Failure("unfollow", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM user_follows WHERE follower_id = $1 AND following_id = $2
	`, viewer, targetUserID)
	if err != nil {
		return persist.Failure("unfollow", fmt.Errorf("delete follow: %w", err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Not following; nothing to adjust.
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET follower_count = GREATEST(follower_count - 1, 0) WHERE id = $1`, targetUserID); err != nil {
		return persist.Failure("unfollow", fmt.Errorf("decrement follower count: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET following_count = GREATEST(following_count - 1, 0) WHERE id = $1`, viewer); err != nil {
		return persist.Failure("unfollow", fmt.Errorf("decrement following count: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return persist.Failure("unfollow", fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// GetFollowStatus reports whether the viewer follows the target. Queried per
// pair; follow edges are never cached beyond the rendered results.
func (b *Backend) GetFollowStatus(ctx context.Context, targetUserID string) (bool, error) {
	viewer, ok := persist.ViewerFromContext(ctx)
	if !ok {
		return false, nil
	}
	var exists bool
	err := b.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM user_follows WHERE follower_id = $1 AND following_id = $2)
	`, viewer, targetUserID)
	if err != nil {
		return false, persist.Failure("get-follow-status", fmt.Errorf("check follow: %w", err))
	}
	return exists, nil
}

// SearchUsers matches usernames and display names, case-insensitive.
func (b *Backend) SearchUsers(ctx context.Context, query string) ([]model.UserProfile, error) {
	var users []model.User
	q := `
		SELECT id, username, name, avatar_url, bio,
		       follower_count, following_count, post_count, created_at, updated_at
		FROM users
		WHERE username ILIKE $1 OR name ILIKE $1
		ORDER BY follower_count DESC
		LIMIT 20
	`
	if err := b.db.SelectContext(ctx, &users, q, "%"+query+"%"); err != nil {
		return nil, persist.Failure("search-users", fmt.Errorf("search users: %w", err))
	}

	profiles := make([]model.UserProfile, len(users))
	for i := range users {
		profiles[i] = users[i].Profile()
	}
	return profiles, nil
}

// UpdateProfile writes the editable profile fields.
func (b *Backend) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error {
	result, err := b.db.ExecContext(ctx, `
		UPDATE users SET name = $1, bio = $2, avatar_url = $3, updated_at = NOW()
		WHERE id = $4
	`, update.Name, update.Bio, update.AvatarURL, userID)
	if err != nil {
		return persist.Failure("update-profile", fmt.Errorf("update user: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persist.Failure("update-profile", fmt.Errorf("rows affected: %w", err))
	}
	if rows == 0 {
		return persist.Failure("update-profile", model.ErrUserNotFound)
	}
	return nil
}
