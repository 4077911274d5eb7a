package models

import "time"

// Comment is a row from the comments table.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Author *Profile `json:"profiles"`
}

// CommentInsert is the payload for creating a comment.
type CommentInsert struct {
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}
