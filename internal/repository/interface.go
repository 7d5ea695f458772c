package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/plantpal/internal/domain"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPostNotFound     = errors.New("post not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// UserRepository persists user records.
type UserRepository interface {
	// Upsert creates the user or, when Email is set, refreshes its email.
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	// EnsureExists creates empty records for ids that have none.
	EnsureExists(ctx context.Context, ids ...string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context, limit int) ([]string, error)
}

// FollowRepository persists follow edges. Follow and Unfollow report
// whether an edge was actually created or removed; repeating either call
// is a no-op, not an error.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListFollowers(ctx context.Context, userID string) ([]string, error)
	BatchIsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error)
	GetFollowersCount(ctx context.Context, userID string) (int64, error)
	GetFollowingCount(ctx context.Context, userID string) (int64, error)
}

// PostRepository persists posts and their likes. Like and Unlike change
// the like row and like_count in one transaction and report whether the
// liker set changed.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Post, error)
	// ListByAuthors returns up to limit posts by authorIDs in
	// (created_at DESC, id DESC) order, strictly after the cursor when set.
	ListByAuthors(ctx context.Context, authorIDs []string, after *domain.Cursor, limit int) ([]*domain.Post, error)
	// Delete removes the post with its likes and comments and returns it.
	Delete(ctx context.Context, id string) (*domain.Post, error)
	Like(ctx context.Context, postID, userID string) (bool, error)
	Unlike(ctx context.Context, postID, userID string) (bool, error)
	LikedBy(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	// SearchIDs matches title or caption, newest first.
	SearchIDs(ctx context.Context, query string, offset, limit int) ([]string, int64, error)
}

// CommentRepository persists comments, which are owned by a post.
type CommentRepository interface {
	// Add fails with ErrPostNotFound when the parent post does not exist.
	Add(ctx context.Context, comment *domain.Comment) error
	ListByPost(ctx context.Context, postID string) ([]domain.Comment, error)
	// Latest returns the newest n comments of a post in chronological order.
	Latest(ctx context.Context, postID string, n int) ([]domain.Comment, error)
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error)
}
