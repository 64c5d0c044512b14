package model

import "errors"

// ContentKind tags which collection a content id belongs to. Mutations carry
// the kind explicitly instead of sniffing the target's shape.
type ContentKind string

const (
	KindPost ContentKind = "post"
	KindReel ContentKind = "reel"
)

// Valid reports whether the kind is one of the known variants.
func (k ContentKind) Valid() bool {
	return k == KindPost || k == KindReel
}

// Post represents a feed post with denormalized author display fields.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	Likes     int       `json:"likes"`
	IsLiked   bool      `json:"is_liked"`
	Comments  []Comment `json:"comments"`
}

// ReelAudio is the audio attribution shown on a reel.
type ReelAudio struct {
	Author string `json:"author"`
	Title  string `json:"title"`
}

// Reel is a short video post. Same shape as Post plus audio attribution and
// the generation prompt that produced it.
type Reel struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	VideoURL  string    `json:"video_url"`
	Caption   string    `json:"caption"`
	Likes     int       `json:"likes"`
	IsLiked   bool      `json:"is_liked"`
	Comments  []Comment `json:"comments"`
	Audio     ReelAudio `json:"audio"`
	Prompt    string    `json:"prompt"`
}

// Comment belongs to exactly one post or reel. Comment lists are append-only
// within a session; no edit or delete is modeled.
type Comment struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Text      string `json:"text"`
}

// Content length limits.
const (
	MaxCaptionLength = 2200
	MaxCommentLength = 2200
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrReelNotFound    = errors.New("reel not found")
	ErrNotPostOwner    = errors.New("not the owner of this post")
	ErrCaptionTooLong  = errors.New("caption too long")
	ErrContentRequired = errors.New("comment text is required")
	ErrContentTooLong  = errors.New("comment text too long")
	ErrInvalidKind     = errors.New("unknown content kind")
	ErrAlreadyLiked    = errors.New("content already liked")
	ErrNotLiked        = errors.New("content not liked")
)
