// Package store holds the session's in-memory content collections. It is the
// single shared mutable resource: every mutation replaces the affected entity
// wholesale under the lock, so readers always observe some prior valid state.
package store

import (
	"sync"

	"instagen/internal/model"
)

// Collection identifies which collection a change notification refers to.
type Collection string

const (
	CollectionPosts   Collection = "posts"
	CollectionReels   Collection = "reels"
	CollectionStories Collection = "stories"
	CollectionProfile Collection = "profile"
)

// Change describes one store mutation, delivered to the change hook after the
// mutation commits. EntityID is empty for bulk replacements.
type Change struct {
	Collection Collection
	EntityID   string
}

// Store is the local cache of posts, reels, stories and the session profile.
// Construct with New and share by pointer; all methods are safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	posts   []model.Post
	reels   []model.Reel
	stories []model.UserStory
	profile *model.UserProfile

	// onChange, when set, observes committed mutations. Called outside the
	// lock so a slow observer never stalls readers.
	onChange func(Change)
}

func New() *Store {
	return &Store{}
}

// SetChangeHook registers the single change observer. Must be called before
// the store is shared.
func (s *Store) SetChangeHook(fn func(Change)) {
	s.onChange = fn
}

func (s *Store) notify(c Change) {
	if s.onChange != nil {
		s.onChange(c)
	}
}

// ReplaceAllPosts installs the bulk-loaded feed. Insertion order is feed
// order, newest first.
func (s *Store) ReplaceAllPosts(posts []model.Post) {
	s.mu.Lock()
	s.posts = append([]model.Post(nil), posts...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts})
}

func (s *Store) ReplaceAllReels(reels []model.Reel) {
	s.mu.Lock()
	s.reels = append([]model.Reel(nil), reels...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionReels})
}

func (s *Store) ReplaceAllStories(stories []model.UserStory) {
	s.mu.Lock()
	s.stories = append([]model.UserStory(nil), stories...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionStories})
}

// SetProfile installs the session profile.
func (s *Store) SetProfile(p model.UserProfile) {
	s.mu.Lock()
	cp := p
	s.profile = &cp
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionProfile, EntityID: p.ID})
}

// PrependPost inserts newly created content at the front of the feed.
func (s *Store) PrependPost(p model.Post) {
	s.mu.Lock()
	s.posts = append([]model.Post{clonePost(p)}, s.posts...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts, EntityID: p.ID})
}

func (s *Store) PrependReel(r model.Reel) {
	s.mu.Lock()
	s.reels = append([]model.Reel{cloneReel(r)}, s.reels...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionReels, EntityID: r.ID})
}

func (s *Store) PrependUserStory(us model.UserStory) {
	s.mu.Lock()
	s.stories = append([]model.UserStory{cloneUserStory(us)}, s.stories...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionStories, EntityID: us.UserID})
}

// UpdatePost applies a functional patch to one post, identity preserved.
// Returns false (a no-op) when the id is absent: the mutation may race with a
// concurrent removal and must never fail for that.
func (s *Store) UpdatePost(id string, patch func(model.Post) model.Post) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.posts {
		if s.posts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	updated := patch(clonePost(s.posts[idx]))
	updated.ID = s.posts[idx].ID // ids are immutable for the entity's lifetime
	s.posts[idx] = updated
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts, EntityID: id})
	return true
}

func (s *Store) UpdateReel(id string, patch func(model.Reel) model.Reel) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.reels {
		if s.reels[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	updated := patch(cloneReel(s.reels[idx]))
	updated.ID = s.reels[idx].ID
	s.reels[idx] = updated
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionReels, EntityID: id})
	return true
}

// UpdateUserStory patches the story group owned by userID.
func (s *Store) UpdateUserStory(userID string, patch func(model.UserStory) model.UserStory) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.stories {
		if s.stories[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	updated := patch(cloneUserStory(s.stories[idx]))
	updated.UserID = s.stories[idx].UserID
	s.stories[idx] = updated
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionStories, EntityID: userID})
	return true
}

// UpdateProfile patches the session profile. No-op when no session is loaded.
func (s *Store) UpdateProfile(patch func(model.UserProfile) model.UserProfile) bool {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return false
	}
	updated := patch(*s.profile)
	updated.ID = s.profile.ID
	s.profile = &updated
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionProfile, EntityID: updated.ID})
	return true
}

// ReplacePost swaps the entity stored under id for a canonical copy, keeping
// its feed position. This is the one place an entity's id may change: a
// client-assigned id being reconciled with the server-assigned one.
func (s *Store) ReplacePost(id string, p model.Post) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.posts {
		if s.posts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.posts[idx] = clonePost(p)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts, EntityID: p.ID})
	return true
}

func (s *Store) ReplaceReel(id string, r model.Reel) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.reels {
		if s.reels[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.reels[idx] = cloneReel(r)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionReels, EntityID: r.ID})
	return true
}

// TakePost removes a post and returns the removed copy with its former index,
// so a failed delete can put it back exactly where it was.
func (s *Store) TakePost(id string) (model.Post, int, bool) {
	s.mu.Lock()
	idx := -1
	for i := range s.posts {
		if s.posts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.Post{}, -1, false
	}
	taken := clonePost(s.posts[idx])
	s.posts = append(s.posts[:idx:idx], s.posts[idx+1:]...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts, EntityID: id})
	return taken, idx, true
}

// InsertPostAt restores a post at the given index, clamped to the list bounds.
func (s *Store) InsertPostAt(idx int, p model.Post) {
	s.mu.Lock()
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.posts) {
		idx = len(s.posts)
	}
	s.posts = append(s.posts[:idx:idx], append([]model.Post{clonePost(p)}, s.posts[idx:]...)...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts, EntityID: p.ID})
}

// RemovePost deletes a post by id. Missing ids are a no-op.
func (s *Store) RemovePost(id string) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.posts {
		if s.posts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.posts = append(s.posts[:idx:idx], s.posts[idx+1:]...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionPosts, EntityID: id})
	return true
}

// RemoveReel deletes a reel by id. Missing ids are a no-op.
func (s *Store) RemoveReel(id string) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.reels {
		if s.reels[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.reels = append(s.reels[:idx:idx], s.reels[idx+1:]...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionReels, EntityID: id})
	return true
}

// RemoveUserStory drops a story group, used when reverting the creation of a
// user's first story. Missing ids are a no-op.
func (s *Store) RemoveUserStory(userID string) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.stories {
		if s.stories[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.stories = append(s.stories[:idx:idx], s.stories[idx+1:]...)
	s.mu.Unlock()
	s.notify(Change{Collection: CollectionStories, EntityID: userID})
	return true
}

// FindPost returns a copy of the post with the given id.
func (s *Store) FindPost(id string) (model.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			return clonePost(s.posts[i]), true
		}
	}
	return model.Post{}, false
}

func (s *Store) FindReel(id string) (model.Reel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reels {
		if s.reels[i].ID == id {
			return cloneReel(s.reels[i]), true
		}
	}
	return model.Reel{}, false
}

func (s *Store) FindUserStory(userID string) (model.UserStory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.stories {
		if s.stories[i].UserID == userID {
			return cloneUserStory(s.stories[i]), true
		}
	}
	return model.UserStory{}, false
}

// Posts returns a copy of the feed in insertion order.
func (s *Store) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Post, len(s.posts))
	for i := range s.posts {
		out[i] = clonePost(s.posts[i])
	}
	return out
}

func (s *Store) Reels() []model.Reel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reel, len(s.reels))
	for i := range s.reels {
		out[i] = cloneReel(s.reels[i])
	}
	return out
}

func (s *Store) Stories() []model.UserStory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UserStory, len(s.stories))
	for i := range s.stories {
		out[i] = cloneUserStory(s.stories[i])
	}
	return out
}

// Profile returns a copy of the session profile, if one is loaded.
func (s *Store) Profile() (model.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return model.UserProfile{}, false
	}
	return *s.profile, true
}

// Entity copies carry their own comment/story slices so a patched copy never
// aliases the stored one.

func clonePost(p model.Post) model.Post {
	p.Comments = append([]model.Comment(nil), p.Comments...)
	return p
}

func cloneReel(r model.Reel) model.Reel {
	r.Comments = append([]model.Comment(nil), r.Comments...)
	return r
}

func cloneUserStory(us model.UserStory) model.UserStory {
	us.Stories = append([]model.StoryItem(nil), us.Stories...)
	return us
}
