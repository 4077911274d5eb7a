package models

import "time"

// NewsArticle is a row from the news_articles table, a server-side cache of
// articles pulled from RSS sources.
type NewsArticle struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	SourceName  string     `json:"source_name"`
	SourceURL   string     `json:"source_url"`
	ImageURL    *string    `json:"image_url"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewsArticleInsert is the payload for caching a fetched article.
type NewsArticleInsert struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	SourceName  string     `json:"source_name"`
	SourceURL   string     `json:"source_url"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
