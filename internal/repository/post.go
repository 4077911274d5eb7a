// Package repository provides typed data access over the backend gateway,
// one repository per aggregate.
package repository

import (
	"context"

	"chirp/internal/gateway"
	"chirp/internal/models"
)

// postWithAuthor selects post rows with the joined author profile.
const postWithAuthor = "*, profiles(*)"

// PostRepository defines post data operations.
type PostRepository interface {
	FeedPosts(ctx context.Context, limit, offset int) ([]models.Post, error)
	UserPosts(ctx context.Context, userID string, limit, offset int) ([]models.Post, error)
	GetByID(ctx context.Context, postID string) (*models.Post, error)
	Create(ctx context.Context, in models.PostInsert) (*models.Post, error)
	Delete(ctx context.Context, postID string) error
}

type postRepository struct {
	gw gateway.Gateway
}

// NewPostRepository creates a new post repository.
func NewPostRepository(gw gateway.Gateway) PostRepository {
	return &postRepository{gw: gw}
}

func (r *postRepository) FeedPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	q := gateway.Query{
		Table:      "posts",
		Columns:    postWithAuthor,
		Filters:    []gateway.Filter{gateway.Eq("moderation_status", models.ModerationApproved)},
		OrderBy:    "created_at",
		Descending: true,
		Offset:     offset,
		Limit:      limit,
	}
	if err := r.gw.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UserPosts(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	var posts []models.Post
	q := gateway.Query{
		Table:   "posts",
		Columns: postWithAuthor,
		Filters: []gateway.Filter{
			gateway.Eq("author_id", userID),
			gateway.Eq("moderation_status", models.ModerationApproved),
		},
		OrderBy:    "created_at",
		Descending: true,
		Offset:     offset,
		Limit:      limit,
	}
	if err := r.gw.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	if postID == "" {
		return nil, models.NewValidationError("post id is required")
	}
	var post models.Post
	q := gateway.Query{
		Table:   "posts",
		Columns: postWithAuthor,
		Filters: []gateway.Filter{gateway.Eq("id", postID)},
		Single:  true,
	}
	if err := r.gw.Select(ctx, q, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, in models.PostInsert) (*models.Post, error) {
	if in.AuthorID == "" {
		return nil, models.NewValidationError("author id is required")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("content is required")
	}
	var inserted []models.Post
	if err := r.gw.Insert(ctx, "posts", in, &inserted); err != nil {
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, &models.AppError{Code: models.CodeServer, Message: "insert returned no rows"}
	}
	// Re-read with the author join; the insert returns the bare row.
	return r.GetByID(ctx, inserted[0].ID)
}

func (r *postRepository) Delete(ctx context.Context, postID string) error {
	if postID == "" {
		return models.NewValidationError("post id is required")
	}
	return r.gw.Delete(ctx, "posts", []gateway.Filter{gateway.Eq("id", postID)})
}
