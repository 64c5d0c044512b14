package store

import "instagen/internal/model"

// Derived views are recomputed from the authoritative post list on every
// read. They are never cached separately, so they cannot drift.

// TotalLikes sums like counts across the given user's own posts.
func (s *Store) TotalLikes(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for i := range s.posts {
		if s.posts[i].UserID == userID {
			total += s.posts[i].Likes
		}
	}
	return total
}

// TotalComments sums comment counts across the given user's own posts.
func (s *Store) TotalComments(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for i := range s.posts {
		if s.posts[i].UserID == userID {
			total += len(s.posts[i].Comments)
		}
	}
	return total
}

// PostsByUser filters the feed down to one author, preserving feed order.
func (s *Store) PostsByUser(userID string) []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Post
	for i := range s.posts {
		if s.posts[i].UserID == userID {
			out = append(out, clonePost(s.posts[i]))
		}
	}
	return out
}

// ReelsByUser filters the reels list down to one author.
func (s *Store) ReelsByUser(userID string) []model.Reel {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reel
	for i := range s.reels {
		if s.reels[i].UserID == userID {
			out = append(out, cloneReel(s.reels[i]))
		}
	}
	return out
}
