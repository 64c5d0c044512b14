package sync

import (
	"context"
	"log"

	"instagen/internal/model"
)

// SearchResult pairs a profile from user search with the viewer's follow
// state toward it.
type SearchResult struct {
	model.UserProfile
	IsFollowing bool `json:"is_following"`
}

// UpdateProfile edits the session profile. A freshly captured avatar arrives
// as an inline data: payload; it is uploaded first so the stored reference is
// durable, but an upload failure only falls back to the inline payload — the
// update itself still proceeds. Only the backend update call reverts.
func (c *Controller) UpdateProfile(ctx context.Context, update model.ProfileUpdate) error {
	prof, ok := c.store.Profile()
	if !ok {
		return model.ErrUserNotFound
	}

	if model.IsInlineData(update.AvatarURL) {
		if ref, err := c.uploadInlineAvatar(ctx, update.AvatarURL); err != nil {
			log.Printf("[Sync] Avatar upload failed, keeping inline payload: %v", err)
		} else {
			update.AvatarURL = ref
		}
	}

	snapshot := prof
	c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
		p.Name = update.Name
		p.Bio = update.Bio
		p.AvatarURL = update.AvatarURL
		return p
	})

	if err := c.backend.UpdateProfile(ctx, prof.ID, update); err != nil {
		c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
			p.Name = snapshot.Name
			p.Bio = snapshot.Bio
			p.AvatarURL = snapshot.AvatarURL
			return p
		})
		c.report(MsgUpdateProfileFailed, err)
		return err
	}
	return nil
}

func (c *Controller) uploadInlineAvatar(ctx context.Context, ref string) (string, error) {
	data, contentType, err := model.DecodeInlineData(ref)
	if err != nil {
		return "", err
	}
	result, err := c.backend.UploadMedia(ctx, model.UploadInput{
		Data:        data,
		ContentType: contentType,
		Folder:      model.AvatarFolder,
	})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

// SearchUsers queries the backend and annotates each result with the
// viewer's follow state. Annotation is best-effort per result; a status
// lookup failure logs and leaves that result unannotated.
func (c *Controller) SearchUsers(ctx context.Context, query string) ([]SearchResult, error) {
	users, err := c.backend.SearchUsers(ctx, query)
	if err != nil {
		c.report(MsgSearchFailed, err)
		return nil, err
	}

	results := make([]SearchResult, len(users))
	for i, u := range users {
		following, err := c.backend.GetFollowStatus(ctx, u.ID)
		if err != nil {
			log.Printf("[Sync] Follow status lookup failed for user %s: %v", u.ID, err)
		}
		results[i] = SearchResult{UserProfile: u, IsFollowing: following}
	}

	c.searchMu.Lock()
	c.results = append([]SearchResult(nil), results...)
	c.searchMu.Unlock()
	return results, nil
}

// SearchResults returns a copy of the last search's annotated results.
func (c *Controller) SearchResults() []SearchResult {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	return append([]SearchResult(nil), c.results...)
}

// Follow marks the viewer as following the target, bumping the target's
// follower count in the cached search results and the viewer's own following
// count. Both revert if the backend rejects.
func (c *Controller) Follow(ctx context.Context, targetUserID string) error {
	applied := c.patchResult(targetUserID, func(r *SearchResult) {
		r.IsFollowing = true
		r.Stats.Followers++
	})
	c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
		p.Stats.Following++
		return p
	})

	if err := c.backend.Follow(ctx, targetUserID); err != nil {
		if applied {
			c.patchResult(targetUserID, func(r *SearchResult) {
				r.IsFollowing = false
				if r.Stats.Followers > 0 {
					r.Stats.Followers--
				}
			})
		}
		c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
			if p.Stats.Following > 0 {
				p.Stats.Following--
			}
			return p
		})
		c.report(MsgFollowFailed, err)
		return err
	}
	return nil
}

// Unfollow is the inverse of Follow, with counts floored at zero.
func (c *Controller) Unfollow(ctx context.Context, targetUserID string) error {
	var hadFollower bool
	var wasFollowing bool
	applied := c.patchResult(targetUserID, func(r *SearchResult) {
		wasFollowing = r.IsFollowing
		r.IsFollowing = false
		if r.Stats.Followers > 0 {
			r.Stats.Followers--
			hadFollower = true
		}
	})
	var decremented bool
	c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
		if p.Stats.Following > 0 {
			p.Stats.Following--
			decremented = true
		}
		return p
	})

	if err := c.backend.Unfollow(ctx, targetUserID); err != nil {
		if applied {
			c.patchResult(targetUserID, func(r *SearchResult) {
				r.IsFollowing = wasFollowing
				if hadFollower {
					r.Stats.Followers++
				}
			})
		}
		if decremented {
			c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
				p.Stats.Following++
				return p
			})
		}
		c.report(MsgUnfollowFailed, err)
		return err
	}
	return nil
}

// patchResult mutates one cached search result in place. Returns false when
// the target is not in the current results.
func (c *Controller) patchResult(userID string, patch func(*SearchResult)) bool {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	for i := range c.results {
		if c.results[i].ID == userID {
			patch(&c.results[i])
			return true
		}
	}
	return false
}
