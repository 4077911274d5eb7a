package models

import "time"

// NotificationType enumerates the notification kinds.
type NotificationType string

const (
	NotificationLike       NotificationType = "like"
	NotificationComment    NotificationType = "comment"
	NotificationFollow     NotificationType = "follow"
	NotificationRepost     NotificationType = "repost"
	NotificationMention    NotificationType = "mention"
	NotificationModeration NotificationType = "moderation"
)

// Notification is a row from the notifications table. Actor and Post are
// joined rows and may be nil (deleted actor, deleted post).
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	ActorID   *string          `json:"actor_id"`
	Type      NotificationType `json:"type"`
	PostID    *string          `json:"post_id"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`

	Actor *Profile `json:"actor"`
	Post  *Post    `json:"posts"`
}

// ActorUsername returns the acting user's username, or a placeholder when the
// actor row is absent.
func (n *Notification) ActorUsername() string {
	if n.Actor == nil {
		return "unknown"
	}
	return n.Actor.Username
}

// NotificationInsert is the payload for creating a notification.
type NotificationInsert struct {
	UserID  string           `json:"user_id"`
	ActorID *string          `json:"actor_id,omitempty"`
	Type    NotificationType `json:"type"`
	PostID  *string          `json:"post_id,omitempty"`
}
