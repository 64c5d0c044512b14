package localkv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"instagen/internal/model"
	"instagen/internal/persist"
)

// Metadata records mirror the entities with the large media field stripped.
// The payload is rejoined from the blob bucket by entity id on load; a
// missing payload yields an empty media reference, never a load failure.

type postMeta struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Username  string          `json:"username"`
	AvatarURL string          `json:"avatar_url"`
	Caption   string          `json:"caption"`
	Likes     int             `json:"likes"`
	IsLiked   bool            `json:"is_liked"`
	Comments  []model.Comment `json:"comments"`
}

type reelMeta struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Username  string          `json:"username"`
	AvatarURL string          `json:"avatar_url"`
	Caption   string          `json:"caption"`
	Likes     int             `json:"likes"`
	IsLiked   bool            `json:"is_liked"`
	Comments  []model.Comment `json:"comments"`
	Audio     model.ReelAudio `json:"audio"`
	Prompt    string          `json:"prompt"`
}

type storyItemMeta struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

type userStoryMeta struct {
	UserID           string          `json:"user_id"`
	Username         string          `json:"username"`
	AvatarURL        string          `json:"avatar_url"`
	Stories          []storyItemMeta `json:"stories"`
	HasUnseenStories bool            `json:"has_unseen_stories"`
}

// QuotaWarning identifies an item whose media could not be persisted. The
// in-memory mutation is kept; the content stays visible for the session but
// will not survive a reload.
type QuotaWarning struct {
	Collection string
	EntityID   string
}

func (w QuotaWarning) Message() string {
	return fmt.Sprintf("Storage is full: the newest %s could not be saved and will disappear after a reload", singular(w.Collection))
}

func singular(collection string) string {
	switch collection {
	case "posts":
		return "post"
	case "reels":
		return "reel"
	case "stories":
		return "story"
	}
	return "item"
}

// SavePosts serializes the posts collection: one metadata aggregate plus one
// blob record per post. Returns quota warnings for media that did not fit.
// A metadata write failure logs and skips; the data stays in memory only.
func (kv *KV) SavePosts(posts []model.Post) []QuotaWarning {
	metas := make([]postMeta, len(posts))
	for i, p := range posts {
		metas[i] = postMeta{
			ID:        p.ID,
			UserID:    p.UserID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
			Caption:   p.Caption,
			Likes:     p.Likes,
			IsLiked:   p.IsLiked,
			Comments:  p.Comments,
		}
	}
	if err := kv.putMetaJSON("posts", metas); err != nil {
		log.Printf("[LocalStore] Skipping posts metadata write: %v", err)
		return nil
	}

	var warnings []QuotaWarning
	for _, p := range posts {
		if err := kv.PutBlob(postBlobBucket, p.ID, []byte(p.ImageURL)); err != nil {
			if errors.Is(err, persist.ErrQuotaExceeded) {
				warnings = append(warnings, QuotaWarning{Collection: "posts", EntityID: p.ID})
				continue
			}
			log.Printf("[LocalStore] Post media write failed: id=%s err=%v", p.ID, err)
		}
	}
	return warnings
}

// LoadPosts reverses the split, rejoining metadata with media payloads.
func (kv *KV) LoadPosts() ([]model.Post, error) {
	var metas []postMeta
	ok, err := kv.getMetaJSON("posts", &metas)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	posts := make([]model.Post, len(metas))
	for i, m := range metas {
		blob, err := kv.GetBlob(postBlobBucket, m.ID)
		if err != nil {
			log.Printf("[LocalStore] Post media read failed: id=%s err=%v", m.ID, err)
		}
		comments := m.Comments
		if comments == nil {
			comments = []model.Comment{}
		}
		posts[i] = model.Post{
			ID:        m.ID,
			UserID:    m.UserID,
			Username:  m.Username,
			AvatarURL: m.AvatarURL,
			ImageURL:  string(blob),
			Caption:   m.Caption,
			Likes:     m.Likes,
			IsLiked:   m.IsLiked,
			Comments:  comments,
		}
	}
	return posts, nil
}

// SaveReels mirrors SavePosts for the reels collection.
func (kv *KV) SaveReels(reels []model.Reel) []QuotaWarning {
	metas := make([]reelMeta, len(reels))
	for i, r := range reels {
		metas[i] = reelMeta{
			ID:        r.ID,
			UserID:    r.UserID,
			Username:  r.Username,
			AvatarURL: r.AvatarURL,
			Caption:   r.Caption,
			Likes:     r.Likes,
			IsLiked:   r.IsLiked,
			Comments:  r.Comments,
			Audio:     r.Audio,
			Prompt:    r.Prompt,
		}
	}
	if err := kv.putMetaJSON("reels", metas); err != nil {
		log.Printf("[LocalStore] Skipping reels metadata write: %v", err)
		return nil
	}

	var warnings []QuotaWarning
	for _, r := range reels {
		if err := kv.PutBlob(reelBlobBucket, r.ID, []byte(r.VideoURL)); err != nil {
			if errors.Is(err, persist.ErrQuotaExceeded) {
				warnings = append(warnings, QuotaWarning{Collection: "reels", EntityID: r.ID})
				continue
			}
			log.Printf("[LocalStore] Reel media write failed: id=%s err=%v", r.ID, err)
		}
	}
	return warnings
}

func (kv *KV) LoadReels() ([]model.Reel, error) {
	var metas []reelMeta
	ok, err := kv.getMetaJSON("reels", &metas)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	reels := make([]model.Reel, len(metas))
	for i, m := range metas {
		blob, err := kv.GetBlob(reelBlobBucket, m.ID)
		if err != nil {
			log.Printf("[LocalStore] Reel media read failed: id=%s err=%v", m.ID, err)
		}
		comments := m.Comments
		if comments == nil {
			comments = []model.Comment{}
		}
		reels[i] = model.Reel{
			ID:        m.ID,
			UserID:    m.UserID,
			Username:  m.Username,
			AvatarURL: m.AvatarURL,
			VideoURL:  string(blob),
			Caption:   m.Caption,
			Likes:     m.Likes,
			IsLiked:   m.IsLiked,
			Comments:  comments,
			Audio:     m.Audio,
			Prompt:    m.Prompt,
		}
	}
	return reels, nil
}

// SaveStories persists story groups; each story item's image is a separate
// blob record keyed by the item id.
func (kv *KV) SaveStories(stories []model.UserStory) []QuotaWarning {
	metas := make([]userStoryMeta, len(stories))
	for i, us := range stories {
		items := make([]storyItemMeta, len(us.Stories))
		for j, item := range us.Stories {
			items[j] = storyItemMeta{
				ID:        item.ID,
				CreatedAt: item.CreatedAt.UTC().Format(timeLayout),
			}
		}
		metas[i] = userStoryMeta{
			UserID:           us.UserID,
			Username:         us.Username,
			AvatarURL:        us.AvatarURL,
			Stories:          items,
			HasUnseenStories: us.HasUnseenStories,
		}
	}
	if err := kv.putMetaJSON("stories", metas); err != nil {
		log.Printf("[LocalStore] Skipping stories metadata write: %v", err)
		return nil
	}

	var warnings []QuotaWarning
	for _, us := range stories {
		for _, item := range us.Stories {
			if err := kv.PutBlob(storyBlobBucket, item.ID, []byte(item.ImageURL)); err != nil {
				if errors.Is(err, persist.ErrQuotaExceeded) {
					warnings = append(warnings, QuotaWarning{Collection: "stories", EntityID: item.ID})
					continue
				}
				log.Printf("[LocalStore] Story media write failed: id=%s err=%v", item.ID, err)
			}
		}
	}
	return warnings
}

func (kv *KV) LoadStories() ([]model.UserStory, error) {
	var metas []userStoryMeta
	ok, err := kv.getMetaJSON("stories", &metas)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	stories := make([]model.UserStory, len(metas))
	for i, m := range metas {
		items := make([]model.StoryItem, len(m.Stories))
		for j, im := range m.Stories {
			blob, err := kv.GetBlob(storyBlobBucket, im.ID)
			if err != nil {
				log.Printf("[LocalStore] Story media read failed: id=%s err=%v", im.ID, err)
			}
			items[j] = model.StoryItem{
				ID:       im.ID,
				ImageURL: string(blob),
				Duration: model.StoryDuration,
			}
			items[j].CreatedAt, _ = parseTimestamp(im.CreatedAt)
		}
		stories[i] = model.UserStory{
			UserID:           m.UserID,
			Username:         m.Username,
			AvatarURL:        m.AvatarURL,
			Stories:          items,
			HasUnseenStories: m.HasUnseenStories,
		}
	}
	return stories, nil
}

// SaveProfile persists the session profile. The avatar travels with the
// metadata: profile avatars are durable references, not captured payloads.
func (kv *KV) SaveProfile(p model.UserProfile) {
	if err := kv.putMetaJSON("profile", p); err != nil {
		log.Printf("[LocalStore] Skipping profile metadata write: %v", err)
	}
}

func (kv *KV) LoadProfile() (*model.UserProfile, error) {
	var p model.UserProfile
	ok, err := kv.getMetaJSON("profile", &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (kv *KV) putMetaJSON(collection string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	if err := kv.PutMeta(collection, data); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	return nil
}

// getMetaJSON reports ok=false when the aggregate has never been written.
func (kv *KV) getMetaJSON(collection string, v interface{}) (bool, error) {
	data, err := kv.GetMeta(collection)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", collection, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", collection, err)
	}
	return true, nil
}
