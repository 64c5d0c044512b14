package localkv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"instagen/internal/model"
	"instagen/internal/persist"
	"instagen/internal/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func openTestKV(t *testing.T, quotaBytes int64) *KV {
	t.Helper()
	kv, err := OpenKV(filepath.Join(t.TempDir(), "device.db"), quotaBytes)
	if err != nil {
		t.Fatalf("open device store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

// =============================================================================
// SNAPSHOT ROUND-TRIP
// =============================================================================

func TestSaveLoadPosts_RejoinsMediaWithMetadata(t *testing.T) {
	kv := openTestKV(t, 0)

	saved := []model.Post{
		{ID: "p1", UserID: "u1", Username: "gen", ImageURL: "data:image/jpeg;base64,AAAA",
			Caption: "first", Likes: 3, IsLiked: true,
			Comments: []model.Comment{{ID: "c1", Text: "hi"}}},
		{ID: "p2", UserID: "u2", ImageURL: "https://cdn.example/p2.jpg"},
	}
	if warnings := kv.SavePosts(saved); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	loaded, err := kv.LoadPosts()
	if err != nil {
		t.Fatalf("load posts: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(loaded))
	}
	if loaded[0].ImageURL != saved[0].ImageURL || loaded[1].ImageURL != saved[1].ImageURL {
		t.Errorf("media payloads did not rejoin: %q, %q", loaded[0].ImageURL, loaded[1].ImageURL)
	}
	if loaded[0].Likes != 3 || !loaded[0].IsLiked || len(loaded[0].Comments) != 1 {
		t.Errorf("metadata did not round-trip: %+v", loaded[0])
	}
	if loaded[1].Comments == nil {
		t.Error("expected an empty comment slice, not nil")
	}
}

func TestLoadPosts_MissingBlobYieldsEmptyReference(t *testing.T) {
	kv := openTestKV(t, 0)

	kv.SavePosts([]model.Post{{ID: "p1", ImageURL: "data:image/jpeg;base64,AAAA"}})
	if err := kv.DeleteBlob(postBlobBucket, "p1"); err != nil {
		t.Fatalf("delete blob: %v", err)
	}

	loaded, err := kv.LoadPosts()
	if err != nil {
		t.Fatalf("expected missing media to degrade, not fail: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ImageURL != "" {
		t.Errorf("expected the post with an empty media reference, got %+v", loaded)
	}
}

func TestLoadPosts_FirstRunReturnsNil(t *testing.T) {
	kv := openTestKV(t, 0)

	loaded, err := kv.LoadPosts()
	if err != nil {
		t.Fatalf("load posts: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil before the first save, got %v", loaded)
	}
}

func TestSaveLoadStories_KeepsTimestampsAndGrouping(t *testing.T) {
	kv := openTestKV(t, 0)

	created := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	kv.SaveStories([]model.UserStory{
		{UserID: "u1", Username: "gen", HasUnseenStories: true,
			Stories: []model.StoryItem{{ID: "s1", ImageURL: "data:image/jpeg;base64,BBBB", CreatedAt: created}}},
	})

	loaded, err := kv.LoadStories()
	if err != nil {
		t.Fatalf("load stories: %v", err)
	}
	if len(loaded) != 1 || len(loaded[0].Stories) != 1 {
		t.Fatalf("expected one group with one item, got %+v", loaded)
	}
	item := loaded[0].Stories[0]
	if !item.CreatedAt.Equal(created) {
		t.Errorf("expected created-at %v, got %v", created, item.CreatedAt)
	}
	if item.ImageURL != "data:image/jpeg;base64,BBBB" || item.Duration != model.StoryDuration {
		t.Errorf("item did not round-trip: %+v", item)
	}
	if !loaded[0].HasUnseenStories {
		t.Error("expected the unseen marker kept")
	}
}

func TestSaveLoadProfile(t *testing.T) {
	kv := openTestKV(t, 0)

	if p, err := kv.LoadProfile(); err != nil || p != nil {
		t.Fatalf("expected no profile before the first save, got %v, %v", p, err)
	}

	kv.SaveProfile(model.UserProfile{ID: "u1", Username: "gen", Stats: model.ProfileStats{Posts: 2}})

	p, err := kv.LoadProfile()
	if err != nil || p == nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.Username != "gen" || p.Stats.Posts != 2 {
		t.Errorf("profile did not round-trip: %+v", p)
	}
}

// =============================================================================
// QUOTA
// =============================================================================

func TestPutBlob_EnforcesQuota(t *testing.T) {
	kv := openTestKV(t, 10)

	if err := kv.PutBlob(postBlobBucket, "p1", []byte("12345678")); err != nil {
		t.Fatalf("expected the first write within quota, got: %v", err)
	}
	err := kv.PutBlob(postBlobBucket, "p2", []byte("12345678"))
	if !errors.Is(err, persist.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got: %v", err)
	}
	if got, _ := kv.GetBlob(postBlobBucket, "p2"); got != nil {
		t.Error("expected the rejected write to store nothing")
	}

	// Replacing an existing payload charges only the delta.
	if err := kv.PutBlob(postBlobBucket, "p1", []byte("123456789a")); err != nil {
		t.Errorf("expected the in-place replacement to fit, got: %v", err)
	}
	if got := kv.UsedBytes(); got != 10 {
		t.Errorf("expected 10 used bytes, got %d", got)
	}
}

func TestDeleteBlob_RefundsQuota(t *testing.T) {
	kv := openTestKV(t, 10)

	kv.PutBlob(postBlobBucket, "p1", []byte("1234567890"))
	if err := kv.DeleteBlob(postBlobBucket, "p1"); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if got := kv.UsedBytes(); got != 0 {
		t.Errorf("expected quota refunded, got %d used bytes", got)
	}
	if err := kv.PutBlob(postBlobBucket, "p2", []byte("1234567890")); err != nil {
		t.Errorf("expected the freed space reusable, got: %v", err)
	}
}

func TestSavePosts_QuotaExhaustionWarnsButKeepsMetadata(t *testing.T) {
	kv := openTestKV(t, 8)

	warnings := kv.SavePosts([]model.Post{
		{ID: "p1", ImageURL: "1234"},
		{ID: "p2", ImageURL: "this one is far too large"},
	})

	if len(warnings) != 1 || warnings[0].EntityID != "p2" {
		t.Fatalf("expected one warning for p2, got %v", warnings)
	}
	if msg := warnings[0].Message(); msg == "" {
		t.Error("expected a user-facing warning message")
	}

	// Both posts stay listed; only the oversized media is gone.
	loaded, err := kv.LoadPosts()
	if err != nil {
		t.Fatalf("load posts: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected both posts in the metadata aggregate, got %d", len(loaded))
	}
	if loaded[0].ImageURL != "1234" || loaded[1].ImageURL != "" {
		t.Errorf("expected p1 media kept and p2 media dropped, got %q, %q",
			loaded[0].ImageURL, loaded[1].ImageURL)
	}
}

func TestOpenKV_RecountsUsageAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")

	kv, err := OpenKV(path, 10)
	if err != nil {
		t.Fatalf("open device store: %v", err)
	}
	kv.PutBlob(postBlobBucket, "p1", []byte("12345678"))
	kv.Close()

	kv, err = OpenKV(path, 10)
	if err != nil {
		t.Fatalf("reopen device store: %v", err)
	}
	defer kv.Close()

	if got := kv.UsedBytes(); got != 8 {
		t.Errorf("expected 8 used bytes after reopen, got %d", got)
	}
	if err := kv.PutBlob(postBlobBucket, "p2", []byte("123")); !errors.Is(err, persist.ErrQuotaExceeded) {
		t.Errorf("expected the quota enforced against recounted usage, got: %v", err)
	}
}

// =============================================================================
// BACKEND
// =============================================================================

func TestFetchFeed_SeedsOnFirstRunThenLoadsPersisted(t *testing.T) {
	kv := openTestKV(t, 0)
	st := store.New()
	st.SetProfile(model.UserProfile{ID: "u1", Username: "gen"})
	b := NewBackend(kv, st)

	seeded, err := b.FetchFeed(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("fetch feed: %v", err)
	}
	if len(seeded) == 0 {
		t.Fatal("expected the seed feed on first run")
	}

	kv.SavePosts([]model.Post{{ID: "mine", UserID: "u1", ImageURL: "x"}})
	persisted, err := b.FetchFeed(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("fetch feed: %v", err)
	}
	if len(persisted) != 1 || persisted[0].ID != "mine" {
		t.Errorf("expected the persisted feed after a save, got %v", persisted)
	}
}

func TestFetchFeed_WindowsLimitAndOffset(t *testing.T) {
	kv := openTestKV(t, 0)
	st := store.New()
	b := NewBackend(kv, st)

	kv.SavePosts([]model.Post{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	page, err := b.FetchFeed(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("fetch feed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "b" || page[1].ID != "c" {
		t.Errorf("expected the [b c] window, got %v", page)
	}

	empty, err := b.FetchFeed(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("fetch feed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected an empty page past the end, got %v", empty)
	}
}

func TestFetchActiveStories_DropsExpiredItems(t *testing.T) {
	kv := openTestKV(t, 0)
	st := store.New()
	b := NewBackend(kv, st)

	now := time.Now().UTC()
	kv.SaveStories([]model.UserStory{
		{UserID: "u1", Stories: []model.StoryItem{
			{ID: "fresh", CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "stale", CreatedAt: now.Add(-25 * time.Hour)},
		}},
		{UserID: "u2", Stories: []model.StoryItem{
			{ID: "gone", CreatedAt: now.Add(-48 * time.Hour)},
		}},
	})

	active, err := b.FetchActiveStories(context.Background())
	if err != nil {
		t.Fatalf("fetch stories: %v", err)
	}
	if len(active) != 1 || active[0].UserID != "u1" {
		t.Fatalf("expected only u1's group to survive, got %+v", active)
	}
	if len(active[0].Stories) != 1 || active[0].Stories[0].ID != "fresh" {
		t.Errorf("expected only the fresh item, got %+v", active[0].Stories)
	}
}

func TestBackend_CreatePostUsesSessionAuthor(t *testing.T) {
	kv := openTestKV(t, 0)
	st := store.New()
	st.SetProfile(model.UserProfile{ID: "u1", Username: "gen", AvatarURL: "https://cdn.example/u1.jpg"})
	b := NewBackend(kv, st)

	post, err := b.CreatePost(context.Background(), "u1", "data:image/jpeg;base64,AAAA", "hello")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID == "" || post.Username != "gen" || post.AvatarURL != "https://cdn.example/u1.jpg" {
		t.Errorf("expected an id and the session author's display fields, got %+v", post)
	}

	other, _ := b.CreatePost(context.Background(), "u1", "x", "again")
	if other.ID == post.ID {
		t.Error("expected distinct ids per create")
	}
}

func TestBackend_FollowStateRoundTrips(t *testing.T) {
	kv := openTestKV(t, 0)
	b := NewBackend(kv, store.New())
	ctx := context.Background()

	if err := b.Follow(ctx, "u7"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if following, _ := b.GetFollowStatus(ctx, "u7"); !following {
		t.Error("expected following after Follow")
	}
	if err := b.Unfollow(ctx, "u7"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if following, _ := b.GetFollowStatus(ctx, "u7"); following {
		t.Error("expected not following after Unfollow")
	}
}

func TestBackend_UploadMediaFailsInLocalMode(t *testing.T) {
	kv := openTestKV(t, 0)
	b := NewBackend(kv, store.New())

	if _, err := b.UploadMedia(context.Background(), model.UploadInput{Data: []byte("x")}); err == nil {
		t.Fatal("expected upload to fail without a remote media store")
	}
}

// =============================================================================
// SYNCER
// =============================================================================

func TestSyncer_PersistsStoreMutations(t *testing.T) {
	kv := openTestKV(t, 0)
	st := store.New()
	s := NewSyncer(kv, st, nil)

	st.ReplaceAllPosts([]model.Post{{ID: "p1", ImageURL: "x", Likes: 1}})
	st.UpdatePost("p1", func(p model.Post) model.Post {
		p.Likes = 2
		return p
	})
	st.SetProfile(model.UserProfile{ID: "u1", Username: "gen"})
	s.flush()

	loaded, err := kv.LoadPosts()
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected the post persisted, got %v, %v", loaded, err)
	}
	if loaded[0].Likes != 2 {
		t.Errorf("expected the latest snapshot persisted, got likes=%d", loaded[0].Likes)
	}
	if p, _ := kv.LoadProfile(); p == nil || p.Username != "gen" {
		t.Errorf("expected the profile persisted, got %+v", p)
	}
}

func TestSyncer_StartStopFlushesPendingChanges(t *testing.T) {
	kv := openTestKV(t, 0)
	st := store.New()
	s := NewSyncer(kv, st, nil)

	s.Start(context.Background())
	st.ReplaceAllPosts([]model.Post{{ID: "p1", ImageURL: "x"}})
	s.Stop()

	loaded, err := kv.LoadPosts()
	if err != nil || len(loaded) != 1 {
		t.Errorf("expected the shutdown flush to persist the feed, got %v, %v", loaded, err)
	}
}

func TestSyncer_WarnsOncePerEntityOnQuotaExhaustion(t *testing.T) {
	kv := openTestKV(t, 4)
	st := store.New()
	var warnings []string
	s := NewSyncer(kv, st, func(message string) {
		warnings = append(warnings, message)
	})

	st.ReplaceAllPosts([]model.Post{{ID: "p1", ImageURL: "far too large for the budget"}})
	s.flush()
	// A second mutation re-persists the same oversized entity.
	st.UpdatePost("p1", func(p model.Post) model.Post {
		p.Likes++
		return p
	})
	s.flush()

	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning for the entity, got %v", warnings)
	}

	// The feed entry itself survives; only its media is missing.
	loaded, err := kv.LoadPosts()
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected the metadata persisted, got %v, %v", loaded, err)
	}
	if loaded[0].Likes != 1 || loaded[0].ImageURL != "" {
		t.Errorf("expected metadata current and media absent, got %+v", loaded[0])
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestUserStore_CreateAndLookup(t *testing.T) {
	kv := openTestKV(t, 0)
	users, err := NewUserStore(kv)
	if err != nil {
		t.Fatalf("init user store: %v", err)
	}
	ctx := context.Background()

	u := &model.User{Username: "gen_artist", PasswordHashed: "hash", Name: "Gen"}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Errorf("expected an assigned id and timestamps, got %+v", u)
	}

	byName, err := users.GetByUsername(ctx, "gen_artist")
	if err != nil || byName.ID != u.ID {
		t.Errorf("expected the user by username, got %+v, %v", byName, err)
	}
	byID, err := users.GetByID(ctx, u.ID)
	if err != nil || byID.Username != "gen_artist" {
		t.Errorf("expected the user by id, got %+v, %v", byID, err)
	}
	if exists, _ := users.ExistsByUsername(ctx, "gen_artist"); !exists {
		t.Error("expected ExistsByUsername true")
	}
}

func TestUserStore_DuplicateUsernameRejected(t *testing.T) {
	kv := openTestKV(t, 0)
	users, _ := NewUserStore(kv)
	ctx := context.Background()

	if err := users.Create(ctx, &model.User{Username: "gen"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := users.Create(ctx, &model.User{Username: "gen"})
	if !errors.Is(err, model.ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got: %v", err)
	}
}

func TestUserStore_MissingUserErrors(t *testing.T) {
	kv := openTestKV(t, 0)
	users, _ := NewUserStore(kv)
	ctx := context.Background()

	if _, err := users.GetByID(ctx, "nope"); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound by id, got: %v", err)
	}
	if _, err := users.GetByUsername(ctx, "nope"); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound by username, got: %v", err)
	}
}
