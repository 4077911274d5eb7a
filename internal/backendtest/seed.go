package backendtest

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// SeedProfile inserts a profile with plausible fake data. Overrides are
// merged over the generated row.
func (s *Server) SeedProfile(overrides Row) Row {
	row := Row{
		"id":               uuid.NewString(),
		"username":         gofakeit.Username(),
		"full_name":        gofakeit.Name(),
		"bio":              gofakeit.Sentence(8),
		"avatar_url":       nil,
		"is_curated_voice": false,
		"follower_count":   float64(0),
	}
	for k, v := range overrides {
		row[k] = v
	}
	stored, err := s.Store.Insert("profiles", row, true)
	if err != nil {
		panic(fmt.Sprintf("seed profile: %v", err))
	}
	return stored
}

// SeedCuratedVoice inserts a profile marked as a curated voice.
func (s *Server) SeedCuratedVoice() Row {
	return s.SeedProfile(Row{"is_curated_voice": true})
}

// SeedPost inserts an approved post by the given author.
func (s *Server) SeedPost(authorID string, overrides Row) Row {
	row := Row{
		"id":                uuid.NewString(),
		"author_id":         authorID,
		"content":           gofakeit.Sentence(12),
		"image_url":         nil,
		"like_count":        float64(0),
		"comment_count":     float64(0),
		"repost_count":      float64(0),
		"view_count":        float64(0),
		"is_curated":        false,
		"moderation_status": "approved",
		"created_at":        time.Now().UTC().Add(-time.Duration(gofakeit.Number(1, 720)) * time.Minute).Format(time.RFC3339),
	}
	for k, v := range overrides {
		row[k] = v
	}
	stored, err := s.Store.Insert("posts", row, false)
	if err != nil {
		panic(fmt.Sprintf("seed post: %v", err))
	}
	return stored
}

// SeedTrend inserts a hashtag trend.
func (s *Server) SeedTrend(tag string, postCount int) Row {
	row := Row{
		"id":          uuid.NewString(),
		"hashtag":     tag,
		"title":       "#" + tag,
		"category":    "hashtag",
		"post_count":  float64(postCount),
		"is_trending": true,
	}
	stored, err := s.Store.Insert("trends", row, true)
	if err != nil {
		panic(fmt.Sprintf("seed trend: %v", err))
	}
	return stored
}
