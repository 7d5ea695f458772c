package domain

import "time"

// Activity event types.
const (
	EventPostCreated    = "post.created"
	EventPostDeleted    = "post.deleted"
	EventPostLiked      = "post.liked"
	EventPostUnliked    = "post.unliked"
	EventCommentAdded   = "comment.added"
	EventUserFollowed   = "user.followed"
	EventUserUnfollowed = "user.unfollowed"
)

// ActivityEvent records a state change that actually happened. Repeated
// idempotent calls that changed nothing do not produce events.
type ActivityEvent struct {
	Type      string    `json:"type"`
	ActorID   string    `json:"actorId"`
	TargetID  string    `json:"targetId,omitempty"`
	PostID    string    `json:"postId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key is the partition key: events about the same user stay ordered.
func (e *ActivityEvent) Key() string {
	if e.TargetID != "" {
		return e.TargetID
	}
	return e.ActorID
}
