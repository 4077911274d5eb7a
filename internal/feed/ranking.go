// Package feed implements retrieval and pagination of the post feeds: the
// score-ordered curated stream, its chronological fallback, and the
// following stream.
package feed

import (
	"context"
	"log/slog"

	"chirp/internal/gateway"
	"chirp/internal/models"
	"chirp/internal/observability"
)

// postWithAuthor selects post rows with the joined author profile.
const postWithAuthor = "*, profiles(*)"

// curatedFeedParams are the parameters of the get_curated_feed procedure.
type curatedFeedParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// RankingClient fetches feed slices. Curated ordering is produced entirely
// server-side; the client preserves the returned order and never re-sorts.
type RankingClient struct {
	gw  gateway.Gateway
	log *slog.Logger
}

// NewRankingClient returns a RankingClient on top of gw.
func NewRankingClient(gw gateway.Gateway) *RankingClient {
	return &RankingClient{
		gw:  gw,
		log: observability.NewLogger("feed.ranking"),
	}
}

// FetchCurated returns one slice of the curated feed. The ranking procedure
// yields an ordered ID list; the full rows are batch-fetched separately and
// re-ordered to match, because the batch fetch does not preserve order.
// An empty ID list yields an empty slice with no batch call; the caller
// decides whether to fall back.
func (c *RankingClient) FetchCurated(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	var ranked []models.RankedPost
	params := curatedFeedParams{Limit: limit, Offset: offset}
	if err := c.gw.Call(ctx, "get_curated_feed", params, &ranked); err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.PostID)
	}

	var rows []models.Post
	q := gateway.Query{
		Table:   "posts",
		Columns: postWithAuthor,
		Filters: []gateway.Filter{gateway.In("id", ids)},
	}
	if err := c.gw.Select(ctx, q, &rows); err != nil {
		return nil, err
	}

	byID := make(map[string]models.Post, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	// Rows missing from the batch (deleted between the two calls) are
	// skipped without disturbing the order of the rest.
	posts := make([]models.Post, 0, len(ranked))
	for _, r := range ranked {
		if row, ok := byID[r.PostID]; ok {
			posts = append(posts, row)
		}
	}
	return posts, nil
}

// FetchFallback returns one slice of the general feed: approved posts in
// reverse-chronological order.
func (c *RankingClient) FetchFallback(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

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
	if err := c.gw.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FetchFollowing returns one slice of posts authored by accounts the user
// follows. The following set is fetched unpaginated first; when it is empty
// the posts query is skipped entirely.
func (c *RankingClient) FetchFollowing(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	var follows []models.FollowRecord
	followsQuery := gateway.Query{
		Table:   "follows",
		Columns: "following_id",
		Filters: []gateway.Filter{gateway.Eq("follower_id", userID)},
	}
	if err := c.gw.Select(ctx, followsQuery, &follows); err != nil {
		return nil, err
	}
	if len(follows) == 0 {
		return nil, nil
	}

	authorIDs := make([]string, 0, len(follows))
	for _, f := range follows {
		authorIDs = append(authorIDs, f.FollowingID)
	}

	var posts []models.Post
	q := gateway.Query{
		Table:   "posts",
		Columns: postWithAuthor,
		Filters: []gateway.Filter{
			gateway.Eq("moderation_status", models.ModerationApproved),
			gateway.In("author_id", authorIDs),
		},
		OrderBy:    "created_at",
		Descending: true,
		Offset:     offset,
		Limit:      limit,
	}
	if err := c.gw.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func validatePage(limit, offset int) error {
	if limit <= 0 {
		return models.NewValidationError("page limit must be positive")
	}
	if offset < 0 {
		return models.NewValidationError("page offset must not be negative")
	}
	return nil
}
