package service

import (
	"context"
	"errors"
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
	"github.com/weiawesome/plantpal/pkg/storage"
)

// ImageStore keeps post images in object storage.
type ImageStore interface {
	Save(ctx context.Context, postID string, data []byte, contentType string) (string, string, error)
	Open(ctx context.Context, key string) (*storage.Object, error)
	Load(ctx context.Context, key string) ([]byte, error)
	DeletePost(ctx context.Context, postID string) error
}

// postService implements PostService.
type postService struct {
	annotator
	users     repository.UserRepository
	images    ImageStore
	index     search.PostIndex
	publisher events.Publisher
	clock     clock.Clock
	cfg       config.FeedConfig
}

// PostDeps groups the collaborators of the post service.
type PostDeps struct {
	Users     repository.UserRepository
	Posts     repository.PostRepository
	Comments  repository.CommentRepository
	Images    ImageStore
	Index     search.PostIndex
	Publisher events.Publisher
	Clock     clock.Clock
	Retry     RetryPolicy
}

// NewPostService creates a new PostService instance. Search pages are
// sized like feed pages.
func NewPostService(deps PostDeps, cfg config.FeedConfig) PostService {
	return &postService{
		annotator: annotator{posts: deps.Posts, comments: deps.Comments, retry: deps.Retry},
		users:     deps.Users,
		images:    deps.Images,
		index:     deps.Index,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		cfg:       cfg,
	}
}

// CreatePost stores the optional image, then the post. It is not retried.
func (s *postService) CreatePost(ctx context.Context, in *domain.CreatePostInput) (*domain.Post, error) {
	l := pkglog.Ctx(ctx)

	title := strings.TrimSpace(in.Title)
	caption := strings.TrimSpace(in.Caption)
	switch {
	case in.AuthorID == "":
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	case caption == "":
		return nil, fmt.Errorf("%w: caption is required", ErrValidation)
	}
	if err := checkUserIDs("userId", in.AuthorID); err != nil {
		return nil, err
	}
	if err := checkLen("title", title, domain.MaxTitleLen); err != nil {
		return nil, err
	}
	if err := checkLen("email", in.AuthorEmail, domain.MaxEmailLen); err != nil {
		return nil, err
	}

	if err := s.users.EnsureExists(ctx, in.AuthorID); err != nil {
		return nil, translate(err)
	}
	email := in.AuthorEmail
	if email == "" {
		author, err := s.users.GetByID(ctx, in.AuthorID)
		if err != nil {
			return nil, translate(err)
		}
		email = author.Email
	}

	now := s.clock.NowUtc()
	post := &domain.Post{
		ID:          newID(now),
		AuthorID:    in.AuthorID,
		AuthorEmail: email,
		Title:       title,
		Caption:     caption,
		CreatedAt:   now,
	}

	if in.Image != nil && len(in.Image.Data) > 0 {
		key, contentType, err := s.images.Save(ctx, post.ID, in.Image.Data, in.Image.ContentType)
		if err != nil {
			l.Warn().Err(err).Str(pkglog.FieldUserID, in.AuthorID).Str("filename", in.Image.Filename).Msg("failed to store post image")
			return nil, translate(err)
		}
		post.ImageKey = key
		post.ContentType = contentType
	}

	if err := s.posts.Create(ctx, post); err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, in.AuthorID).Msg("failed to create post")
		if post.HasImage() {
			if derr := s.images.DeletePost(ctx, post.ID); derr != nil {
				l.Warn().Err(derr).Str(pkglog.FieldPostID, post.ID).Msg("failed to clean up orphaned image")
			}
		}
		return nil, translate(err)
	}

	if err := s.index.Index(ctx, post); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldPostID, post.ID).Msg("failed to index post")
	}

	publishEvent(ctx, s.publisher, &domain.ActivityEvent{
		Type:      domain.EventPostCreated,
		ActorID:   post.AuthorID,
		PostID:    post.ID,
		Timestamp: now,
	})
	audit.LogWithTarget(ctx, audit.ActionCreatePost, post.AuthorID, post.ID, "post created")
	return post, nil
}

// GetPost returns the post with all comments, annotated for viewerID.
func (s *postService) GetPost(ctx context.Context, postID, viewerID string) (*domain.PostView, error) {
	view, err := s.fullView(ctx, postID, viewerID)
	if err != nil {
		return nil, translate(err)
	}
	return view, nil
}

// ListComments returns every comment of the post in chronological order.
func (s *postService) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := retry(ctx, s.retry, func(ctx context.Context) (*domain.Post, error) {
		return s.posts.GetByID(ctx, postID)
	}); err != nil {
		return nil, translate(err)
	}

	comments, err := retry(ctx, s.retry, func(ctx context.Context) ([]domain.Comment, error) {
		return s.comments.ListByPost(ctx, postID)
	})
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

// OpenImage opens the post's image. The content type recorded on the post
// wins over what the storage backend reports.
func (s *postService) OpenImage(ctx context.Context, postID string) (*storage.Object, error) {
	post, err := retry(ctx, s.retry, func(ctx context.Context) (*domain.Post, error) {
		return s.posts.GetByID(ctx, postID)
	})
	if err != nil {
		return nil, translate(err)
	}
	if !post.HasImage() {
		return nil, ErrImageNotFound
	}

	obj, err := s.images.Open(ctx, post.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	if post.ContentType != "" {
		obj.ContentType = post.ContentType
	}
	return obj, nil
}

// LoadImage reads the post's image into memory. Posts without an image
// yield ErrImageNotFound.
func (s *postService) LoadImage(ctx context.Context, post *domain.Post) ([]byte, error) {
	if !post.HasImage() {
		return nil, ErrImageNotFound
	}
	data, err := s.images.Load(ctx, post.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return data, nil
}

// SearchPosts matches query against titles and captions, newest first.
// page is 1-based.
func (s *postService) SearchPosts(ctx context.Context, query string, page, pageSize int) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	if page < 1 {
		page = 1
	}
	pageSize = clampPageSize(pageSize, s.cfg)

	ids, total, err := s.index.Search(ctx, query, (page-1)*pageSize, pageSize)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str("query", query).Msg("failed to search posts")
		return nil, translate(err)
	}

	posts, err := retry(ctx, s.retry, func(ctx context.Context) ([]*domain.Post, error) {
		return s.posts.GetByIDs(ctx, ids)
	})
	if err != nil {
		return nil, translate(err)
	}

	return &domain.SearchResult{
		Posts:    posts,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Ensure interface is satisfied at compile time.
var _ PostService = (*postService)(nil)
