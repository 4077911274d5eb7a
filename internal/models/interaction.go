package models

// Relation names a directed edge type between two identities. Edges have
// existence semantics only: at most one per (actor, target, relation), no
// payload, no update.
type Relation string

const (
	RelationLike   Relation = "like"
	RelationRepost Relation = "repost"
	RelationFollow Relation = "follow"
)

// Table returns the backing table for the relation.
func (r Relation) Table() string {
	switch r {
	case RelationLike:
		return "likes"
	case RelationRepost:
		return "reposts"
	case RelationFollow:
		return "follows"
	}
	return ""
}

// LikeInsert is the payload for creating a like edge.
type LikeInsert struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

// RepostInsert is the payload for creating a repost edge.
type RepostInsert struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

// FollowInsert is the payload for creating a follow edge.
type FollowInsert struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

// FollowRecord is the projection used when fetching a user's following set.
type FollowRecord struct {
	FollowingID string `json:"following_id"`
}

// EdgeRecord is the minimal projection used for existence checks.
type EdgeRecord struct {
	ID string `json:"id"`
}
