package repository

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"chirp/internal/gateway"
	"chirp/internal/models"
	"chirp/internal/observability"
)

// CommentRepository defines comment data operations.
type CommentRepository interface {
	ListForPost(ctx context.Context, postID string) ([]models.Comment, error)
	// Create stores the comment and notifies the post owner best-effort.
	Create(ctx context.Context, in models.CommentInsert, postOwnerID string) (*models.Comment, error)
	Delete(ctx context.Context, commentID, authorID string) error
}

type commentRepository struct {
	gw            gateway.Gateway
	notifications NotificationRepository
	log           *slog.Logger
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(gw gateway.Gateway, notifications NotificationRepository) CommentRepository {
	return &commentRepository{
		gw:            gw,
		notifications: notifications,
		log:           observability.NewLogger("comment_repository"),
	}
}

func (r *commentRepository) ListForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	if postID == "" {
		return nil, models.NewValidationError("post id is required")
	}
	var comments []models.Comment
	q := gateway.Query{
		Table:   "comments",
		Columns: "*, profiles(*)",
		Filters: []gateway.Filter{gateway.Eq("post_id", postID)},
		OrderBy: "created_at",
	}
	if err := r.gw.Select(ctx, q, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Create(ctx context.Context, in models.CommentInsert, postOwnerID string) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.PostID == "" || in.AuthorID == "" {
		return nil, models.NewValidationError("post id and author id are required")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("comment cannot be empty")
	}
	if utf8.RuneCountInString(in.Content) > models.MaxPostLength {
		return nil, models.NewValidationError("comment exceeds maximum length")
	}

	var inserted []models.Comment
	if err := r.gw.Insert(ctx, "comments", in, &inserted); err != nil {
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, &models.AppError{Code: models.CodeServer, Message: "insert returned no rows"}
	}
	comment := inserted[0]

	if r.notifications != nil {
		err := r.notifications.Create(ctx, models.NotificationInsert{
			UserID:  postOwnerID,
			ActorID: &in.AuthorID,
			Type:    models.NotificationComment,
			PostID:  &in.PostID,
		})
		if err != nil {
			r.log.Warn("comment notification failed", "post_id", in.PostID, "error", err)
		}
	}
	return &comment, nil
}

func (r *commentRepository) Delete(ctx context.Context, commentID, authorID string) error {
	if commentID == "" || authorID == "" {
		return models.NewValidationError("comment id and author id are required")
	}
	return r.gw.Delete(ctx, "comments", []gateway.Filter{
		gateway.Eq("id", commentID),
		gateway.Eq("author_id", authorID),
	})
}
