// Package persist defines the persistence boundary the sync controller talks
// to. Two implementations exist: persist/remote (Postgres + blob store) and
// persist/localkv (on-device key-value store). The strategy is chosen once at
// startup from configuration; mutation logic never branches on it.
package persist

import (
	"context"

	"instagen/internal/model"
)

// Backend is the Persistence Adapter contract. Every operation either
// succeeds or fails with a *RemoteFailure; none retries internally — retry
// policy belongs to the caller.
type Backend interface {
	// FetchFeed returns the post feed, newest first. When a session exists
	// the items are annotated with the viewer's like status; that annotation
	// is best-effort and its failure never fails the fetch.
	FetchFeed(ctx context.Context, limit, offset int) ([]model.Post, error)
	FetchReelsFeed(ctx context.Context, limit, offset int) ([]model.Reel, error)
	FetchActiveStories(ctx context.Context) ([]model.UserStory, error)

	CreatePost(ctx context.Context, authorID, imageURL, caption string) (*model.Post, error)
	CreateReel(ctx context.Context, authorID, videoURL, caption, prompt string) (*model.Reel, error)
	CreateStory(ctx context.Context, authorID, imageURL string) (*model.StoryItem, error)
	DeletePost(ctx context.Context, postID string) error

	Like(ctx context.Context, kind model.ContentKind, contentID string) error
	Unlike(ctx context.Context, kind model.ContentKind, contentID string) error
	AddComment(ctx context.Context, kind model.ContentKind, contentID, text string) (*model.Comment, error)

	Follow(ctx context.Context, targetUserID string) error
	Unfollow(ctx context.Context, targetUserID string) error
	GetFollowStatus(ctx context.Context, targetUserID string) (bool, error)
	SearchUsers(ctx context.Context, query string) ([]model.UserProfile, error)

	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error
	UploadMedia(ctx context.Context, input model.UploadInput) (*model.UploadResult, error)
}
