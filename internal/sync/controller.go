// Package sync implements the optimistic mutation layer. Every user action
// patches the local store synchronously, confirms against the persistence
// backend, and on rejection reverts the exact patch it applied. No partial
// states survive a failure.
package sync

import (
	"context"
	"log"
	"strings"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"instagen/internal/model"
	"instagen/internal/persist"
	"instagen/internal/store"
)

// User-facing failure messages, one per action.
const (
	MsgLoadFailed          = "Failed to load content"
	MsgLikeFailed          = "Failed to update like"
	MsgCommentFailed       = "Failed to add comment"
	MsgCreatePostFailed    = "Failed to create post"
	MsgCreateReelFailed    = "Failed to create reel"
	MsgCreateStoryFailed   = "Failed to create story"
	MsgDeletePostFailed    = "Failed to delete post. Please try again."
	MsgUpdateProfileFailed = "Failed to update profile"
	MsgSearchFailed        = "Failed to search users"
	MsgFollowFailed        = "Failed to follow user"
	MsgUnfollowFailed      = "Failed to unfollow user"
)

// ErrorSink receives each surfaced failure message exactly once. Nil sinks
// are allowed; failures are still logged.
type ErrorSink func(message string)

// Controller wires the store to a persistence backend with the
// apply / confirm / revert pattern.
//
// Per content item, cache patches land in issuance order and each patch bumps
// the item's mutation sequence. A confirmation that returns after a newer
// mutation touched the same item is stale: it may reconcile the
// server-assigned id but never overwrites state the user has since changed,
// and a stale failure no longer reverts.
type Controller struct {
	store   *store.Store
	backend persist.Backend
	errors  ErrorSink

	mu  stdsync.Mutex
	seq map[string]uint64

	searchMu stdsync.Mutex
	results  []SearchResult
}

// New builds a controller. sink may be nil.
func New(st *store.Store, backend persist.Backend, sink ErrorSink) *Controller {
	return &Controller{
		store:   st,
		backend: backend,
		errors:  sink,
		seq:     make(map[string]uint64),
	}
}

func (c *Controller) report(msg string, err error) {
	log.Printf("[Sync] %s: %v", msg, err)
	if c.errors != nil {
		c.errors(msg)
	}
}

func seqKey(kind model.ContentKind, id string) string {
	return string(kind) + ":" + id
}

// bumpSeq records a new mutation on the item and returns its sequence.
func (c *Controller) bumpSeq(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq[key]++
	return c.seq[key]
}

// seqCurrent reports whether no newer mutation has touched the item since.
func (c *Controller) seqCurrent(key string, want uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq[key] == want
}

func (c *Controller) dropSeq(key string) {
	c.mu.Lock()
	delete(c.seq, key)
	c.mu.Unlock()
}

func tempID(prefix string) string {
	return prefix + "_temp_" + uuid.NewString()
}

// LoadSession bulk-loads the feed, reels and active stories into the store.
func (c *Controller) LoadSession(ctx context.Context, limit int) error {
	posts, err := c.backend.FetchFeed(ctx, limit, 0)
	if err != nil {
		c.report(MsgLoadFailed, err)
		return err
	}
	reels, err := c.backend.FetchReelsFeed(ctx, limit, 0)
	if err != nil {
		c.report(MsgLoadFailed, err)
		return err
	}
	stories, err := c.backend.FetchActiveStories(ctx)
	if err != nil {
		c.report(MsgLoadFailed, err)
		return err
	}
	c.store.ReplaceAllPosts(posts)
	c.store.ReplaceAllReels(reels)
	c.store.ReplaceAllStories(stories)
	return nil
}

// ToggleLike flips the viewer's like on a post or reel. The flag and count
// change immediately; a backend rejection restores the exact pre-mutation
// pair unless a newer toggle has since taken over the item.
func (c *Controller) ToggleLike(ctx context.Context, kind model.ContentKind, contentID string) error {
	if !kind.Valid() {
		return model.ErrInvalidKind
	}

	var wasLiked bool
	var prevLikes int
	var found bool
	flip := func(isLiked bool, likes int) (bool, int) {
		wasLiked, prevLikes = isLiked, likes
		if isLiked {
			return false, likes - 1
		}
		return true, likes + 1
	}
	switch kind {
	case model.KindPost:
		found = c.store.UpdatePost(contentID, func(p model.Post) model.Post {
			p.IsLiked, p.Likes = flip(p.IsLiked, p.Likes)
			return p
		})
		if !found {
			return model.ErrPostNotFound
		}
	case model.KindReel:
		found = c.store.UpdateReel(contentID, func(r model.Reel) model.Reel {
			r.IsLiked, r.Likes = flip(r.IsLiked, r.Likes)
			return r
		})
		if !found {
			return model.ErrReelNotFound
		}
	}

	key := seqKey(kind, contentID)
	seq := c.bumpSeq(key)

	var err error
	if wasLiked {
		err = c.backend.Unlike(ctx, kind, contentID)
	} else {
		err = c.backend.Like(ctx, kind, contentID)
	}
	if err != nil {
		if c.seqCurrent(key, seq) {
			restore := func() {}
			switch kind {
			case model.KindPost:
				restore = func() {
					c.store.UpdatePost(contentID, func(p model.Post) model.Post {
						p.IsLiked, p.Likes = wasLiked, prevLikes
						return p
					})
				}
			case model.KindReel:
				restore = func() {
					c.store.UpdateReel(contentID, func(r model.Reel) model.Reel {
						r.IsLiked, r.Likes = wasLiked, prevLikes
						return r
					})
				}
			}
			restore()
		}
		c.report(MsgLikeFailed, err)
		return err
	}
	return nil
}

// AddComment appends a comment to the target post or reel. kind is a routing
// hint: when the id is not in the hinted collection the other one is searched,
// and an id found in neither is a no-op. The comment appears immediately with
// a client-assigned id, replaced by the canonical record on confirmation.
func (c *Controller) AddComment(ctx context.Context, kind model.ContentKind, contentID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ErrContentRequired
	}
	if len(text) > model.MaxCommentLength {
		return model.ErrContentTooLong
	}
	if !kind.Valid() {
		kind = model.KindPost
	}

	effective, ok := c.resolveKind(kind, contentID)
	if !ok {
		// id is in neither collection; the target raced with a removal
		return nil
	}

	prof, _ := c.store.Profile()
	temp := model.Comment{
		ID:        tempID("comment"),
		Username:  prof.Username,
		AvatarURL: prof.AvatarURL,
		Text:      text,
	}
	c.appendComment(effective, contentID, temp)

	// The bump marks the item mutated for other in-flight confirmations. The
	// comment's own revert needs no staleness guard: removal by the unique
	// client-assigned id can only ever take out the failed comment itself.
	c.bumpSeq(seqKey(effective, contentID))

	created, err := c.backend.AddComment(ctx, effective, contentID, text)
	if err != nil {
		c.removeComment(effective, contentID, temp.ID)
		c.report(MsgCommentFailed, err)
		return err
	}
	c.swapComment(effective, contentID, temp.ID, *created)
	return nil
}

// resolveKind finds which collection actually holds the id, preferring the
// hinted kind.
func (c *Controller) resolveKind(hint model.ContentKind, contentID string) (model.ContentKind, bool) {
	order := []model.ContentKind{model.KindPost, model.KindReel}
	if hint == model.KindReel {
		order = []model.ContentKind{model.KindReel, model.KindPost}
	}
	for _, k := range order {
		switch k {
		case model.KindPost:
			if _, ok := c.store.FindPost(contentID); ok {
				return k, true
			}
		case model.KindReel:
			if _, ok := c.store.FindReel(contentID); ok {
				return k, true
			}
		}
	}
	return hint, false
}

func (c *Controller) appendComment(kind model.ContentKind, contentID string, cm model.Comment) {
	patch := func(comments []model.Comment) []model.Comment {
		return append(comments, cm)
	}
	c.patchComments(kind, contentID, patch)
}

func (c *Controller) removeComment(kind model.ContentKind, contentID, commentID string) {
	patch := func(comments []model.Comment) []model.Comment {
		out := comments[:0]
		for _, cm := range comments {
			if cm.ID != commentID {
				out = append(out, cm)
			}
		}
		return out
	}
	c.patchComments(kind, contentID, patch)
}

func (c *Controller) swapComment(kind model.ContentKind, contentID, commentID string, canonical model.Comment) {
	patch := func(comments []model.Comment) []model.Comment {
		for i := range comments {
			if comments[i].ID == commentID {
				comments[i] = canonical
			}
		}
		return comments
	}
	c.patchComments(kind, contentID, patch)
}

func (c *Controller) patchComments(kind model.ContentKind, contentID string, patch func([]model.Comment) []model.Comment) {
	switch kind {
	case model.KindPost:
		c.store.UpdatePost(contentID, func(p model.Post) model.Post {
			p.Comments = patch(p.Comments)
			return p
		})
	case model.KindReel:
		c.store.UpdateReel(contentID, func(r model.Reel) model.Reel {
			r.Comments = patch(r.Comments)
			return r
		})
	}
}

// CreatePost prepends the new post immediately under a client-assigned id and
// bumps the profile's post count. Confirmation swaps in the server record;
// failure removes the post and restores the count.
func (c *Controller) CreatePost(ctx context.Context, imageURL, caption string) (string, error) {
	if len(caption) > model.MaxCaptionLength {
		return "", model.ErrCaptionTooLong
	}
	prof, ok := c.store.Profile()
	if !ok {
		return "", model.ErrUserNotFound
	}

	temp := model.Post{
		ID:        tempID("post"),
		UserID:    prof.ID,
		Username:  prof.Username,
		AvatarURL: prof.AvatarURL,
		ImageURL:  imageURL,
		Caption:   caption,
		Comments:  []model.Comment{},
	}
	c.store.PrependPost(temp)
	c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
		p.Stats.Posts++
		return p
	})

	key := seqKey(model.KindPost, temp.ID)
	seq := c.bumpSeq(key)

	created, err := c.backend.CreatePost(ctx, prof.ID, imageURL, caption)
	if err != nil {
		c.store.RemovePost(temp.ID)
		c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
			if p.Stats.Posts > 0 {
				p.Stats.Posts--
			}
			return p
		})
		c.dropSeq(key)
		c.report(MsgCreatePostFailed, err)
		return "", err
	}

	if c.seqCurrent(key, seq) {
		c.store.ReplacePost(temp.ID, *created)
	} else if cur, ok := c.store.FindPost(temp.ID); ok {
		// item mutated since: adopt only the server id, keep local state
		cur.ID = created.ID
		c.store.ReplacePost(temp.ID, cur)
	}
	c.dropSeq(key)
	return created.ID, nil
}

// CreateReel mirrors CreatePost for the reels feed.
func (c *Controller) CreateReel(ctx context.Context, videoURL, caption, prompt string) (string, error) {
	if len(caption) > model.MaxCaptionLength {
		return "", model.ErrCaptionTooLong
	}
	prof, ok := c.store.Profile()
	if !ok {
		return "", model.ErrUserNotFound
	}

	temp := model.Reel{
		ID:        tempID("reel"),
		UserID:    prof.ID,
		Username:  prof.Username,
		AvatarURL: prof.AvatarURL,
		VideoURL:  videoURL,
		Caption:   caption,
		Comments:  []model.Comment{},
		Audio:     model.ReelAudio{Author: prof.Username, Title: "Original Audio"},
		Prompt:    prompt,
	}
	c.store.PrependReel(temp)
	c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
		p.Stats.Posts++
		return p
	})

	key := seqKey(model.KindReel, temp.ID)
	seq := c.bumpSeq(key)

	created, err := c.backend.CreateReel(ctx, prof.ID, videoURL, caption, prompt)
	if err != nil {
		c.store.RemoveReel(temp.ID)
		c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
			if p.Stats.Posts > 0 {
				p.Stats.Posts--
			}
			return p
		})
		c.dropSeq(key)
		c.report(MsgCreateReelFailed, err)
		return "", err
	}

	if c.seqCurrent(key, seq) {
		c.store.ReplaceReel(temp.ID, *created)
	} else if cur, ok := c.store.FindReel(temp.ID); ok {
		cur.ID = created.ID
		c.store.ReplaceReel(temp.ID, cur)
	}
	c.dropSeq(key)
	return created.ID, nil
}

// CreateStory adds a story frame. The first frame creates the viewer's story
// group at the front of the tray; later frames append to it. Either way the
// group is marked unseen until the viewer opens it.
func (c *Controller) CreateStory(ctx context.Context, imageURL string) (string, error) {
	prof, ok := c.store.Profile()
	if !ok {
		return "", model.ErrUserNotFound
	}

	item := model.StoryItem{
		ID:        tempID("story"),
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
		Duration:  model.StoryDuration,
	}

	_, existed := c.store.FindUserStory(prof.ID)
	if existed {
		c.store.UpdateUserStory(prof.ID, func(us model.UserStory) model.UserStory {
			us.Stories = append(us.Stories, item)
			us.HasUnseenStories = true
			return us
		})
	} else {
		c.store.PrependUserStory(model.UserStory{
			UserID:           prof.ID,
			Username:         prof.Username,
			AvatarURL:        prof.AvatarURL,
			Stories:          []model.StoryItem{item},
			HasUnseenStories: true,
		})
	}

	created, err := c.backend.CreateStory(ctx, prof.ID, imageURL)
	if err != nil {
		if existed {
			c.store.UpdateUserStory(prof.ID, func(us model.UserStory) model.UserStory {
				out := us.Stories[:0]
				for _, s := range us.Stories {
					if s.ID != item.ID {
						out = append(out, s)
					}
				}
				us.Stories = out
				return us
			})
		} else {
			c.store.RemoveUserStory(prof.ID)
		}
		c.report(MsgCreateStoryFailed, err)
		return "", err
	}

	c.store.UpdateUserStory(prof.ID, func(us model.UserStory) model.UserStory {
		for i := range us.Stories {
			if us.Stories[i].ID == item.ID {
				us.Stories[i] = *created
			}
		}
		return us
	})
	return created.ID, nil
}

// MarkStoriesSeen clears the unseen marker when the viewer opens a story
// group. Local-only; seen state is not persisted remotely.
func (c *Controller) MarkStoriesSeen(userID string) {
	c.store.UpdateUserStory(userID, func(us model.UserStory) model.UserStory {
		us.HasUnseenStories = false
		return us
	})
}

// DeletePost removes the post and decrements the profile's post count,
// floored at zero. A backend rejection puts the post back at its former feed
// position and restores the count.
func (c *Controller) DeletePost(ctx context.Context, postID string) error {
	taken, idx, ok := c.store.TakePost(postID)
	if !ok {
		return model.ErrPostNotFound
	}
	var decremented bool
	c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
		if p.Stats.Posts > 0 {
			p.Stats.Posts--
			decremented = true
		}
		return p
	})

	if err := c.backend.DeletePost(ctx, postID); err != nil {
		c.store.InsertPostAt(idx, taken)
		if decremented {
			c.store.UpdateProfile(func(p model.UserProfile) model.UserProfile {
				p.Stats.Posts++
				return p
			})
		}
		c.report(MsgDeletePostFailed, err)
		return err
	}
	c.dropSeq(seqKey(model.KindPost, postID))
	return nil
}
