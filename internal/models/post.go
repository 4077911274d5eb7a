package models

import "time"

// Moderation status values for a post.
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// MaxPostLength is the client-side cap on post content. The backend does not
// enforce it; the compose flow rejects longer content before dispatch.
const MaxPostLength = 280

// Post is a row from the posts table. Counters are authoritative on the
// server; the local copy may diverge transiently during optimistic updates.
type Post struct {
	ID               string    `json:"id"`
	AuthorID         string    `json:"author_id"`
	Content          string    `json:"content"`
	ImageURL         *string   `json:"image_url"`
	LikeCount        int       `json:"like_count"`
	CommentCount     int       `json:"comment_count"`
	RepostCount      int       `json:"repost_count"`
	ViewCount        int       `json:"view_count"`
	IsCurated        bool      `json:"is_curated"`
	ModerationStatus string    `json:"moderation_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Author is the joined profiles row; nil when the join was not requested
	// or the profile is gone.
	Author *Profile `json:"profiles"`
}

// AuthorUsername returns the author's username, or a placeholder when the
// joined profile is absent.
func (p *Post) AuthorUsername() string {
	if p.Author == nil {
		return "unknown"
	}
	return p.Author.Username
}

// AuthorDisplayName returns the author's display name, or a placeholder when
// the joined profile is absent.
func (p *Post) AuthorDisplayName() string {
	if p.Author == nil {
		return "Unknown"
	}
	return p.Author.FullName
}

// PostInsert is the payload for creating a post.
type PostInsert struct {
	AuthorID         string  `json:"author_id"`
	Content          string  `json:"content"`
	ImageURL         *string `json:"image_url,omitempty"`
	ModerationStatus string  `json:"moderation_status,omitempty"`
}

// RankedPost is one row of the curated-feed ranking RPC result. The ordering
// of the returned slice is server-determined and must be preserved exactly.
type RankedPost struct {
	PostID string  `json:"post_id"`
	Score  float64 `json:"score"`
}
