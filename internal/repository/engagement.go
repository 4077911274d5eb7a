package repository

import (
	"context"

	"chirp/internal/gateway"
	"chirp/internal/models"
)

// EngagementRepository persists interaction edges and view records. It
// satisfies engagement.Edges and engagement.ViewRecorder.
type EngagementRepository interface {
	Create(ctx context.Context, rel models.Relation, actorID, targetID string) error
	Remove(ctx context.Context, rel models.Relation, actorID, targetID string) error
	Exists(ctx context.Context, rel models.Relation, actorID, targetID string) (bool, error)
	RecordView(ctx context.Context, postID, userID string) error
}

type engagementRepository struct {
	gw gateway.Gateway
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(gw gateway.Gateway) EngagementRepository {
	return &engagementRepository{gw: gw}
}

func (r *engagementRepository) Create(ctx context.Context, rel models.Relation, actorID, targetID string) error {
	table := rel.Table()
	if table == "" {
		return models.NewValidationError("unknown relation")
	}
	var payload any
	switch rel {
	case models.RelationLike:
		payload = models.LikeInsert{UserID: actorID, PostID: targetID}
	case models.RelationRepost:
		payload = models.RepostInsert{UserID: actorID, PostID: targetID}
	case models.RelationFollow:
		payload = models.FollowInsert{FollowerID: actorID, FollowingID: targetID}
	}
	return r.gw.Insert(ctx, table, payload, nil)
}

func (r *engagementRepository) Remove(ctx context.Context, rel models.Relation, actorID, targetID string) error {
	table := rel.Table()
	if table == "" {
		return models.NewValidationError("unknown relation")
	}
	return r.gw.Delete(ctx, table, edgeFilters(rel, actorID, targetID))
}

func (r *engagementRepository) Exists(ctx context.Context, rel models.Relation, actorID, targetID string) (bool, error) {
	table := rel.Table()
	if table == "" {
		return false, models.NewValidationError("unknown relation")
	}
	var rows []models.EdgeRecord
	q := gateway.Query{
		Table:   table,
		Columns: "id",
		Filters: edgeFilters(rel, actorID, targetID),
		Limit:   1,
	}
	if err := r.gw.Select(ctx, q, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// recordViewParams are the parameters of the record_post_view procedure.
type recordViewParams struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

func (r *engagementRepository) RecordView(ctx context.Context, postID, userID string) error {
	if postID == "" || userID == "" {
		return models.NewValidationError("post id and user id are required")
	}
	return r.gw.Call(ctx, "record_post_view", recordViewParams{PostID: postID, UserID: userID}, nil)
}

func edgeFilters(rel models.Relation, actorID, targetID string) []gateway.Filter {
	if rel == models.RelationFollow {
		return []gateway.Filter{
			gateway.Eq("follower_id", actorID),
			gateway.Eq("following_id", targetID),
		}
	}
	return []gateway.Filter{
		gateway.Eq("user_id", actorID),
		gateway.Eq("post_id", targetID),
	}
}
