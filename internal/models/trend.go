package models

import "time"

// Trend is a row from the trends table. A trend is either a hashtag topic
// (Hashtag set) or a news topic (Title/SourceURL set).
type Trend struct {
	ID          string     `json:"id"`
	Hashtag     *string    `json:"hashtag"`
	Title       *string    `json:"title"`
	Category    *string    `json:"category"`
	SourceName  *string    `json:"source_name"`
	SourceURL   *string    `json:"source_url"`
	ImageURL    *string    `json:"image_url"`
	Description *string    `json:"description"`
	PostCount   int        `json:"post_count"`
	IsTrending  bool       `json:"is_trending"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// TrendInsert is the payload for inserting or upserting a trend.
type TrendInsert struct {
	Hashtag     *string `json:"hashtag,omitempty"`
	Title       *string `json:"title,omitempty"`
	Category    *string `json:"category,omitempty"`
	SourceName  *string `json:"source_name,omitempty"`
	SourceURL   *string `json:"source_url,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	Description *string `json:"description,omitempty"`
	PostCount   int     `json:"post_count"`
	IsTrending  bool    `json:"is_trending"`
}
