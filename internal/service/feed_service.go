package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/weiawesome/plantpal/internal/audit"
	"github.com/weiawesome/plantpal/internal/clock"
	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/events"
	"github.com/weiawesome/plantpal/internal/repository"
	"github.com/weiawesome/plantpal/internal/search"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

// ImageRemover deletes every stored image of a post.
type ImageRemover interface {
	DeletePost(ctx context.Context, postID string) error
}

// feedService implements FeedService.
type feedService struct {
	annotator
	users     repository.UserRepository
	graph     SocialGraphService
	images    ImageRemover
	index     search.PostIndex
	publisher events.Publisher
	clock     clock.Clock
	cfg       config.FeedConfig
}

// FeedDeps groups the collaborators of the feed service.
type FeedDeps struct {
	Users     repository.UserRepository
	Posts     repository.PostRepository
	Comments  repository.CommentRepository
	Graph     SocialGraphService
	Images    ImageRemover
	Index     search.PostIndex
	Publisher events.Publisher
	Clock     clock.Clock
	Retry     RetryPolicy
}

// NewFeedService creates a new FeedService instance.
func NewFeedService(deps FeedDeps, cfg config.FeedConfig) FeedService {
	return &feedService{
		annotator: annotator{posts: deps.Posts, comments: deps.Comments, retry: deps.Retry},
		users:     deps.Users,
		graph:     deps.Graph,
		images:    deps.Images,
		index:     deps.Index,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		cfg:       cfg,
	}
}

func clampPageSize(size int, cfg config.FeedConfig) int {
	if size <= 0 {
		size = cfg.DefaultPageSize
	}
	if size < 1 {
		size = 1
	}
	if cfg.MaxPageSize > 0 && size > cfg.MaxPageSize {
		size = cfg.MaxPageSize
	}
	return size
}

// GetFeed returns one page of posts authored by viewerID or anyone viewerID
// follows, newest first, starting strictly after pageToken.
func (s *feedService) GetFeed(ctx context.Context, viewerID string, pageSize int, pageToken string) (*domain.FeedPage, error) {
	l := pkglog.Ctx(ctx)

	if viewerID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	pageSize = clampPageSize(pageSize, s.cfg)

	after, err := domain.DecodeCursor(pageToken)
	if err != nil {
		return nil, translate(err)
	}

	exists, err := retry(ctx, s.retry, func(ctx context.Context) (bool, error) {
		return s.users.Exists(ctx, viewerID)
	})
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, viewerID).Msg("failed to look up viewer")
		return nil, translate(err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	following, err := s.graph.ListFollowing(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	authors := make([]string, 0, len(following)+1)
	authors = append(authors, viewerID)
	for _, id := range following {
		if id != viewerID {
			authors = append(authors, id)
		}
	}

	posts, err := retry(ctx, s.retry, func(ctx context.Context) ([]*domain.Post, error) {
		return s.posts.ListByAuthors(ctx, authors, after, pageSize+1)
	})
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, viewerID).Msg("failed to load feed posts")
		return nil, translate(err)
	}

	page := &domain.FeedPage{}
	if len(posts) > pageSize {
		posts = posts[:pageSize]
		page.NextCursor = domain.CursorAfter(posts[len(posts)-1]).Encode()
	}

	page.Posts, err = s.views(ctx, viewerID, posts, s.cfg.CommentPreview)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, viewerID).Msg("failed to annotate feed posts")
		return nil, translate(err)
	}
	return page, nil
}

// LikePost adds userID to the post's likers. Liking twice is a no-op.
func (s *feedService) LikePost(ctx context.Context, postID, userID string) (*domain.PostView, error) {
	return s.toggleLike(ctx, postID, userID, true)
}

// UnlikePost removes userID from the post's likers. Unliking a post not
// liked is a no-op.
func (s *feedService) UnlikePost(ctx context.Context, postID, userID string) (*domain.PostView, error) {
	return s.toggleLike(ctx, postID, userID, false)
}

func (s *feedService) toggleLike(ctx context.Context, postID, userID string, like bool) (*domain.PostView, error) {
	l := pkglog.Ctx(ctx)

	if postID == "" {
		return nil, fmt.Errorf("%w: postId is required", ErrValidation)
	}
	if err := checkUserIDs("userId", userID); err != nil {
		return nil, err
	}

	changed, err := retry(ctx, s.retry, func(ctx context.Context) (bool, error) {
		if like {
			return s.posts.Like(ctx, postID, userID)
		}
		return s.posts.Unlike(ctx, postID, userID)
	})
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldPostID, postID).Str(pkglog.FieldUserID, userID).Bool("like", like).Msg("failed to change like")
		return nil, translate(err)
	}

	view, err := s.fullView(ctx, postID, userID)
	if err != nil {
		return nil, translate(err)
	}

	if changed {
		eventType, action := domain.EventPostUnliked, audit.ActionUnlikePost
		if like {
			eventType, action = domain.EventPostLiked, audit.ActionLikePost
		}
		publishEvent(ctx, s.publisher, &domain.ActivityEvent{
			Type:      eventType,
			ActorID:   userID,
			TargetID:  view.AuthorID,
			PostID:    postID,
			Timestamp: s.clock.NowUtc(),
		})
		audit.LogWithTarget(ctx, action, userID, postID, "post like changed")
	}
	return view, nil
}

// AddComment appends a comment and returns the post with all its comments.
// It is not retried: a retry after an ambiguous failure could duplicate it.
func (s *feedService) AddComment(ctx context.Context, postID, authorID, text string) (*domain.PostView, error) {
	l := pkglog.Ctx(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrValidation)
	}
	if postID == "" {
		return nil, fmt.Errorf("%w: postId is required", ErrValidation)
	}
	if err := checkUserIDs("author", authorID); err != nil {
		return nil, err
	}

	now := s.clock.NowUtc()
	comment := &domain.Comment{
		ID:        newID(now),
		PostID:    postID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.comments.Add(ctx, comment); err != nil {
		l.Error().Err(err).Str(pkglog.FieldPostID, postID).Str(pkglog.FieldUserID, authorID).Msg("failed to add comment")
		return nil, translate(err)
	}

	view, err := s.fullView(ctx, postID, authorID)
	if err != nil {
		return nil, translate(err)
	}

	publishEvent(ctx, s.publisher, &domain.ActivityEvent{
		Type:      domain.EventCommentAdded,
		ActorID:   authorID,
		TargetID:  view.AuthorID,
		PostID:    postID,
		Timestamp: now,
	})
	audit.LogWithTarget(ctx, audit.ActionAddComment, authorID, postID, "comment added")
	return view, nil
}

// DeletePost removes a post with its likes and comments. Only the author
// may delete it. Image and search cleanup run afterwards and only log
// failures.
func (s *feedService) DeletePost(ctx context.Context, postID, requesterID string) error {
	l := pkglog.Ctx(ctx)

	if postID == "" || requesterID == "" {
		return fmt.Errorf("%w: postId and userId are required", ErrValidation)
	}

	post, err := retry(ctx, s.retry, func(ctx context.Context) (*domain.Post, error) {
		return s.posts.GetByID(ctx, postID)
	})
	if err != nil {
		return translate(err)
	}
	if post.AuthorID != requesterID {
		return fmt.Errorf("%w: only the author can delete a post", ErrForbidden)
	}

	deleted, err := s.posts.Delete(ctx, postID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldPostID, postID).Msg("failed to delete post")
		return translate(err)
	}

	if deleted.HasImage() {
		if err := s.images.DeletePost(ctx, postID); err != nil {
			l.Warn().Err(err).Str(pkglog.FieldPostID, postID).Msg("failed to delete post images")
		}
	}
	if err := s.index.Remove(ctx, postID); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldPostID, postID).Msg("failed to remove post from search index")
	}

	publishEvent(ctx, s.publisher, &domain.ActivityEvent{
		Type:      domain.EventPostDeleted,
		ActorID:   requesterID,
		PostID:    postID,
		Timestamp: s.clock.NowUtc(),
	})
	audit.LogWithTarget(ctx, audit.ActionDeletePost, requesterID, postID, "post deleted")
	return nil
}

// Ensure interface is satisfied at compile time.
var _ FeedService = (*feedService)(nil)
