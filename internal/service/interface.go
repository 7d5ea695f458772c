package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/storage"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrStoreUnavailable = errors.New("store unavailable, retry later")

	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrPostNotFound  = fmt.Errorf("post %w", ErrNotFound)
	ErrImageNotFound = fmt.Errorf("image %w", ErrNotFound)
	ErrSelfFollow    = fmt.Errorf("%w: cannot follow yourself", ErrInvalidOperation)
)

// SocialGraphService manages directed follow relationships between users.
type SocialGraphService interface {
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListFollowers(ctx context.Context, userID string) ([]string, error)
	GetFollowersCount(ctx context.Context, userID string) (int64, error)
	IsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error)
	HandleActivityEvent(ctx context.Context, event *domain.ActivityEvent) error
}

// FeedService assembles viewer feeds and applies engagement to posts.
type FeedService interface {
	GetFeed(ctx context.Context, viewerID string, pageSize int, pageToken string) (*domain.FeedPage, error)
	LikePost(ctx context.Context, postID, userID string) (*domain.PostView, error)
	UnlikePost(ctx context.Context, postID, userID string) (*domain.PostView, error)
	AddComment(ctx context.Context, postID, authorID, text string) (*domain.PostView, error)
	DeletePost(ctx context.Context, postID, requesterID string) error
}

// PostService publishes posts and serves single posts, comments, images
// and search.
type PostService interface {
	CreatePost(ctx context.Context, in *domain.CreatePostInput) (*domain.Post, error)
	GetPost(ctx context.Context, postID, viewerID string) (*domain.PostView, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	// OpenImage returns the post's stored image. The caller closes its Body.
	OpenImage(ctx context.Context, postID string) (*storage.Object, error)
	LoadImage(ctx context.Context, post *domain.Post) ([]byte, error)
	SearchPosts(ctx context.Context, query string, page, pageSize int) (*domain.SearchResult, error)
}

// UserService registers users and builds profiles.
type UserService interface {
	RegisterUser(ctx context.Context, id, email string) (*domain.User, error)
	GetProfile(ctx context.Context, userID, viewerID string) (*domain.UserProfile, error)
}
