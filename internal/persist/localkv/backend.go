package localkv

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"instagen/internal/model"
	"instagen/internal/persist"
)

// errNoRemoteUpload makes the avatar-upload sub-step fall back to the inline
// payload: on-device, the data URL itself is the durable reference.
var errNoRemoteUpload = errors.New("no remote media store in local mode")

// ProfileSource supplies the session profile for author display fields on
// locally created content. *store.Store satisfies it.
type ProfileSource interface {
	Profile() (model.UserProfile, bool)
}

// Backend is the local-only persistence strategy. The in-memory cache is the
// source of truth; this backend assigns ids, answers loads from the device
// store, and confirms mutations without network round-trips. Durability
// happens separately through the Syncer observing cache changes.
type Backend struct {
	kv      *KV
	ids     idGenerator
	profile ProfileSource
	users   []model.UserProfile // seeded directory for search/follow

	mu      sync.Mutex
	follows map[string]bool
}

func NewBackend(kv *KV, profile ProfileSource) *Backend {
	return &Backend{
		kv:      kv,
		profile: profile,
		users:   seedUsers(),
		follows: make(map[string]bool),
	}
}

// FetchFeed loads the persisted feed, falling back to the seed feed on first
// run. The limit/offset window mirrors the remote contract.
func (b *Backend) FetchFeed(ctx context.Context, limit, offset int) ([]model.Post, error) {
	posts, err := b.kv.LoadPosts()
	if err != nil {
		return nil, persist.Failure("fetch-feed", err)
	}
	if posts == nil {
		posts = seedPosts()
	}
	return window(posts, limit, offset), nil
}

func (b *Backend) FetchReelsFeed(ctx context.Context, limit, offset int) ([]model.Reel, error) {
	reels, err := b.kv.LoadReels()
	if err != nil {
		return nil, persist.Failure("fetch-reels-feed", err)
	}
	return window(reels, limit, offset), nil
}

func (b *Backend) FetchActiveStories(ctx context.Context) ([]model.UserStory, error) {
	stories, err := b.kv.LoadStories()
	if err != nil {
		return nil, persist.Failure("fetch-active-stories", err)
	}
	if stories == nil {
		stories = seedStories()
	}
	// Drop expired items; drop groups that end up empty.
	cutoff := time.Now().Add(-model.StoryTTL)
	active := stories[:0]
	for _, us := range stories {
		items := us.Stories[:0]
		for _, item := range us.Stories {
			if item.CreatedAt.After(cutoff) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			us.Stories = items
			active = append(active, us)
		}
	}
	return active, nil
}

// CreatePost assigns a timestamp id and echoes the entity back. The syncer
// persists it when the cache change lands.
func (b *Backend) CreatePost(ctx context.Context, authorID, imageURL, caption string) (*model.Post, error) {
	author, ok := b.profile.Profile()
	if !ok {
		return nil, persist.Failure("create-post", model.ErrUserNotFound)
	}
	return &model.Post{
		ID:        b.ids.next("post"),
		UserID:    authorID,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		ImageURL:  imageURL,
		Caption:   caption,
		Comments:  []model.Comment{},
	}, nil
}

func (b *Backend) CreateReel(ctx context.Context, authorID, videoURL, caption, prompt string) (*model.Reel, error) {
	author, ok := b.profile.Profile()
	if !ok {
		return nil, persist.Failure("create-reel", model.ErrUserNotFound)
	}
	return &model.Reel{
		ID:        b.ids.next("reel"),
		UserID:    authorID,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		VideoURL:  videoURL,
		Caption:   caption,
		Comments:  []model.Comment{},
		Audio:     model.ReelAudio{Author: author.Username, Title: "Original Audio"},
		Prompt:    prompt,
	}, nil
}

func (b *Backend) CreateStory(ctx context.Context, authorID, imageURL string) (*model.StoryItem, error) {
	return &model.StoryItem{
		ID:        b.ids.next("story"),
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
		Duration:  model.StoryDuration,
	}, nil
}

// DeletePost drops the persisted media record immediately; the metadata
// aggregate catches up on the next snapshot.
func (b *Backend) DeletePost(ctx context.Context, postID string) error {
	if err := b.kv.DeleteBlob(postBlobBucket, postID); err != nil {
		return persist.Failure("delete-post", err)
	}
	return nil
}

// Like and Unlike confirm immediately: the cache mutation is the record and
// the syncer makes it durable.
func (b *Backend) Like(ctx context.Context, kind model.ContentKind, contentID string) error {
	if !kind.Valid() {
		return persist.Failure("like", model.ErrInvalidKind)
	}
	return nil
}

func (b *Backend) Unlike(ctx context.Context, kind model.ContentKind, contentID string) error {
	if !kind.Valid() {
		return persist.Failure("unlike", model.ErrInvalidKind)
	}
	return nil
}

func (b *Backend) AddComment(ctx context.Context, kind model.ContentKind, contentID, text string) (*model.Comment, error) {
	if !kind.Valid() {
		return nil, persist.Failure("add-comment", model.ErrInvalidKind)
	}
	author, ok := b.profile.Profile()
	if !ok {
		return nil, persist.Failure("add-comment", model.ErrUserNotFound)
	}
	return &model.Comment{
		ID:        b.ids.next("comment"),
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		Text:      text,
	}, nil
}

func (b *Backend) Follow(ctx context.Context, targetUserID string) error {
	b.mu.Lock()
	b.follows[targetUserID] = true
	b.mu.Unlock()
	return nil
}

func (b *Backend) Unfollow(ctx context.Context, targetUserID string) error {
	b.mu.Lock()
	delete(b.follows, targetUserID)
	b.mu.Unlock()
	return nil
}

func (b *Backend) GetFollowStatus(ctx context.Context, targetUserID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.follows[targetUserID], nil
}

// SearchUsers matches against the seeded directory.
func (b *Backend) SearchUsers(ctx context.Context, query string) ([]model.UserProfile, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	var out []model.UserProfile
	for _, u := range b.users {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, u)
		}
	}
	return out, nil
}

// UpdateProfile confirms immediately; the profile snapshot persists via the
// syncer.
func (b *Backend) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error {
	return nil
}

func (b *Backend) UploadMedia(ctx context.Context, input model.UploadInput) (*model.UploadResult, error) {
	return nil, persist.Failure("upload-media", errNoRemoteUpload)
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
