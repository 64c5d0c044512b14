package model

import (
	"time"
)

// StoryDuration is the fixed display time for a single story item.
const StoryDuration = 5 * time.Second

// StoryTTL is how long a story stays active after creation.
const StoryTTL = 24 * time.Hour

// StoryItem is one story frame. Immutable once created except for expiry.
type StoryItem struct {
	ID        string        `json:"id"`
	ImageURL  string        `json:"image_url"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
}

// UserStory groups a user's active story items. The item list is never empty
// once the group exists: the first item creates the group, later items append.
type UserStory struct {
	UserID           string      `json:"user_id"`
	Username         string      `json:"username"`
	AvatarURL        string      `json:"avatar_url"`
	Stories          []StoryItem `json:"stories"`
	HasUnseenStories bool        `json:"has_unseen_stories"`
}
