package localkv

import (
	"time"

	"instagen/internal/model"
)

// First-run seed content for the local-only mode, so the app opens onto a
// populated feed before the user has created anything.

func seedUsers() []model.UserProfile {
	return []model.UserProfile{
		{
			ID: "user2", Username: "art_explorer", Name: "Alex Johnson",
			AvatarURL: "https://picsum.photos/id/1011/50/50",
			Bio:       "Chasing the morning light.",
			Stats:     model.ProfileStats{Posts: 150, Followers: 5000, Following: 200},
		},
		{
			ID: "user3", Username: "urban_wanderer", Name: "Casey Lee",
			AvatarURL: "https://picsum.photos/id/1025/50/50",
			Bio:       "Cityscapes and coffee sips.",
			Stats:     model.ProfileStats{Posts: 320, Followers: 8500, Following: 300},
		},
		{
			ID: "user4", Username: "pixel_dreamer", Name: "Samira Khan",
			AvatarURL: "https://picsum.photos/id/1012/50/50",
			Bio:       "AI art & digital dreams.",
			Stats:     model.ProfileStats{Posts: 50, Followers: 12000, Following: 50},
		},
		{
			ID: "user5", Username: "lisa_anderson", Name: "Lisa Anderson",
			AvatarURL: "https://picsum.photos/id/237/50/50",
			Bio:       "Dog lover and adventurer.",
			Stats:     model.ProfileStats{Posts: 400, Followers: 2200, Following: 600},
		},
	}
}

func seedPosts() []model.Post {
	return []model.Post{
		{
			ID: "post1", UserID: "user2", Username: "art_explorer",
			AvatarURL: "https://picsum.photos/id/1011/50/50",
			ImageURL:  "https://picsum.photos/id/20/1080/1080",
			Caption:   "Street art finds in the city center",
			Likes:     892, Comments: []model.Comment{},
		},
		{
			ID: "post2", UserID: "user3", Username: "urban_wanderer",
			AvatarURL: "https://picsum.photos/id/1025/50/50",
			ImageURL:  "https://picsum.photos/id/30/1080/1080",
			Caption:   "Coffee and city views",
			Likes:     634, Comments: []model.Comment{},
		},
		{
			ID: "post3", UserID: "user4", Username: "pixel_dreamer",
			AvatarURL: "https://picsum.photos/id/1012/50/50",
			ImageURL:  "https://picsum.photos/id/40/1080/1080",
			Caption:   "AI-generated dreamscape",
			Likes:     2156, Comments: []model.Comment{},
		},
		{
			ID: "post4", UserID: "user5", Username: "lisa_anderson",
			AvatarURL: "https://picsum.photos/id/237/50/50",
			ImageURL:  "https://picsum.photos/id/50/1080/1080",
			Caption:   "Weekend adventures with my furry friend",
			Likes:     445, Comments: []model.Comment{},
		},
	}
}

func seedStories() []model.UserStory {
	now := time.Now()
	return []model.UserStory{
		{
			UserID: "user2", Username: "art_explorer",
			AvatarURL: "https://picsum.photos/id/1011/50/50",
			Stories: []model.StoryItem{
				{ID: "story1", ImageURL: "https://picsum.photos/id/10/1080/1920", CreatedAt: now, Duration: model.StoryDuration},
				{ID: "story2", ImageURL: "https://picsum.photos/id/11/1080/1920", CreatedAt: now, Duration: model.StoryDuration},
			},
			HasUnseenStories: true,
		},
		{
			UserID: "user3", Username: "urban_wanderer",
			AvatarURL: "https://picsum.photos/id/1025/50/50",
			Stories: []model.StoryItem{
				{ID: "story3", ImageURL: "https://picsum.photos/id/12/1080/1920", CreatedAt: now, Duration: model.StoryDuration},
			},
			HasUnseenStories: true,
		},
	}
}
