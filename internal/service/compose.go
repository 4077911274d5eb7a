// Package service implements the application flows that sit above the
// repositories: composing posts and syncing news-driven trends.
package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"chirp/internal/models"
	"chirp/internal/moderation"
	"chirp/internal/observability"
	"chirp/internal/repository"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// ContentClassifier screens content before publishing.
type ContentClassifier interface {
	Analyze(ctx context.Context, text string) moderation.Verdict
}

// ComposeService validates, moderates and publishes new posts.
type ComposeService struct {
	posts      repository.PostRepository
	trends     repository.TrendRepository
	classifier ContentClassifier
	log        *slog.Logger
}

// NewComposeService creates a compose service.
func NewComposeService(posts repository.PostRepository, trends repository.TrendRepository, classifier ContentClassifier) *ComposeService {
	return &ComposeService{
		posts:      posts,
		trends:     trends,
		classifier: classifier,
		log:        observability.NewLogger("compose"),
	}
}

// Publish validates the draft, runs it through moderation, stores it and
// records any hashtags it carries. Rejected content never reaches the
// backend; flagged content publishes pending review.
func (s *ComposeService) Publish(ctx context.Context, authorID, content string, imageURL *string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if authorID == "" {
		return nil, models.NewValidationError("author id is required")
	}
	if content == "" {
		return nil, models.NewValidationError("post cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxPostLength {
		return nil, models.NewValidationError("post exceeds maximum length")
	}

	status := models.ModerationApproved
	verdict := s.classifier.Analyze(ctx, content)
	if !verdict.Approved {
		return nil, models.NewValidationError("content rejected by moderation: " + verdict.Reason)
	}
	if verdict.Flagged {
		s.log.Warn("publishing flagged content pending review", "author_id", authorID, "reason", verdict.Reason)
		status = models.ModerationPending
	}

	post, err := s.posts.Create(ctx, models.PostInsert{
		AuthorID:         authorID,
		Content:          content,
		ImageURL:         imageURL,
		ModerationStatus: status,
	})
	if err != nil {
		return nil, err
	}

	s.recordHashtags(ctx, content)
	return post, nil
}

// recordHashtags bumps trend rows for each hashtag in the content. Trend
// bookkeeping never fails a publish.
func (s *ComposeService) recordHashtags(ctx context.Context, content string) {
	if s.trends == nil {
		return
	}
	seen := make(map[string]struct{})
	for _, match := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(match[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		if err := s.trends.UpsertHashtag(ctx, tag); err != nil {
			s.log.Warn("hashtag trend update failed", "hashtag", tag, "error", err)
		}
	}
}
