package repository

import (
	"context"

	"chirp/internal/gateway"
	"chirp/internal/models"
)

// notificationWithJoins selects notifications with the acting profile and
// related post attached.
const notificationWithJoins = "*, actor:profiles!notifications_actor_id_fkey(*), posts(*)"

// NotificationRepository defines notification data operations. It also
// satisfies engagement.Notifier for the edge side effects.
type NotificationRepository interface {
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	ListByType(ctx context.Context, userID string, t models.NotificationType, limit int) ([]models.Notification, error)
	Mentions(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Create(ctx context.Context, in models.NotificationInsert) error
	DeleteFor(ctx context.Context, userID, actorID string, t models.NotificationType, postID *string) error

	EdgeCreated(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error
	EdgeRemoved(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error
}

type notificationRepository struct {
	gw gateway.Gateway
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(gw gateway.Gateway) NotificationRepository {
	return &notificationRepository{gw: gw}
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return r.list(ctx, userID, "", limit)
}

func (r *notificationRepository) ListByType(ctx context.Context, userID string, t models.NotificationType, limit int) ([]models.Notification, error) {
	return r.list(ctx, userID, t, limit)
}

func (r *notificationRepository) Mentions(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return r.list(ctx, userID, models.NotificationMention, limit)
}

func (r *notificationRepository) list(ctx context.Context, userID string, t models.NotificationType, limit int) ([]models.Notification, error) {
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	filters := []gateway.Filter{gateway.Eq("user_id", userID)}
	if t != "" {
		filters = append(filters, gateway.Eq("type", string(t)))
	}
	var notifications []models.Notification
	q := gateway.Query{
		Table:      "notifications",
		Columns:    notificationWithJoins,
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Limit:      limit,
	}
	if err := r.gw.Select(ctx, q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, models.NewValidationError("user id is required")
	}
	var rows []models.EdgeRecord
	q := gateway.Query{
		Table:   "notifications",
		Columns: "id",
		Filters: []gateway.Filter{
			gateway.Eq("user_id", userID),
			gateway.Eq("is_read", false),
		},
	}
	if err := r.gw.Select(ctx, q, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// readFlag is the mark-as-read update payload.
type readFlag struct {
	IsRead bool `json:"is_read"`
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return models.NewValidationError("notification id is required")
	}
	return r.gw.Update(ctx, "notifications", readFlag{IsRead: true},
		[]gateway.Filter{gateway.Eq("id", notificationID)})
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return models.NewValidationError("user id is required")
	}
	return r.gw.Update(ctx, "notifications", readFlag{IsRead: true},
		[]gateway.Filter{
			gateway.Eq("user_id", userID),
			gateway.Eq("is_read", false),
		})
}

func (r *notificationRepository) Create(ctx context.Context, in models.NotificationInsert) error {
	if in.UserID == "" || in.Type == "" {
		return models.NewValidationError("recipient and type are required")
	}
	// Never notify yourself.
	if in.ActorID != nil && *in.ActorID == in.UserID {
		return nil
	}
	return r.gw.Insert(ctx, "notifications", in, nil)
}

func (r *notificationRepository) DeleteFor(ctx context.Context, userID, actorID string, t models.NotificationType, postID *string) error {
	if userID == "" || actorID == "" || t == "" {
		return models.NewValidationError("recipient, actor and type are required")
	}
	filters := []gateway.Filter{
		gateway.Eq("user_id", userID),
		gateway.Eq("actor_id", actorID),
		gateway.Eq("type", string(t)),
	}
	if postID != nil {
		filters = append(filters, gateway.Eq("post_id", *postID))
	}
	return r.gw.Delete(ctx, "notifications", filters)
}

func notificationTypeFor(rel models.Relation) models.NotificationType {
	switch rel {
	case models.RelationLike:
		return models.NotificationLike
	case models.RelationRepost:
		return models.NotificationRepost
	case models.RelationFollow:
		return models.NotificationFollow
	}
	return ""
}

func (r *notificationRepository) EdgeCreated(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error {
	t := notificationTypeFor(rel)
	if t == "" {
		return models.NewValidationError("unknown relation")
	}
	actor := actorID
	return r.Create(ctx, models.NotificationInsert{
		UserID:  recipientID,
		ActorID: &actor,
		Type:    t,
		PostID:  postID,
	})
}

func (r *notificationRepository) EdgeRemoved(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error {
	t := notificationTypeFor(rel)
	if t == "" {
		return models.NewValidationError("unknown relation")
	}
	if actorID == recipientID {
		return nil
	}
	return r.DeleteFor(ctx, recipientID, actorID, t, postID)
}
