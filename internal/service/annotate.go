package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/repository"
)

// previewFetchLimit caps concurrent comment preview queries per page.
const previewFetchLimit = 4

// annotator turns posts into viewer-scoped views.
type annotator struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	retry    RetryPolicy
}

// views annotates posts for viewerID. With preview > 0 each view carries
// the latest preview comments; with preview < 0 it carries all of them.
func (a *annotator) views(ctx context.Context, viewerID string, posts []*domain.Post, preview int) ([]*domain.PostView, error) {
	out := make([]*domain.PostView, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	liked := map[string]bool{}
	if viewerID != "" {
		var err error
		liked, err = retry(ctx, a.retry, func(ctx context.Context) (map[string]bool, error) {
			return a.posts.LikedBy(ctx, viewerID, ids)
		})
		if err != nil {
			return nil, err
		}
	}

	counts, err := retry(ctx, a.retry, func(ctx context.Context) (map[string]int64, error) {
		return a.comments.CountByPosts(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	comments := make([][]domain.Comment, len(posts))
	if preview != 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(previewFetchLimit)
		for i, id := range ids {
			g.Go(func() error {
				list, err := retry(gctx, a.retry, func(ctx context.Context) ([]domain.Comment, error) {
					if preview < 0 {
						return a.comments.ListByPost(ctx, id)
					}
					return a.comments.Latest(ctx, id, preview)
				})
				comments[i] = list
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	for i, p := range posts {
		list := comments[i]
		if list == nil {
			list = []domain.Comment{}
		}
		out[i] = &domain.PostView{
			Post:          *p,
			LikedByViewer: liked[p.ID],
			CommentCount:  counts[p.ID],
			Comments:      list,
		}
	}
	return out, nil
}

// fullView loads one post with its complete comment list.
func (a *annotator) fullView(ctx context.Context, postID, viewerID string) (*domain.PostView, error) {
	post, err := retry(ctx, a.retry, func(ctx context.Context) (*domain.Post, error) {
		return a.posts.GetByID(ctx, postID)
	})
	if err != nil {
		return nil, err
	}

	views, err := a.views(ctx, viewerID, []*domain.Post{post}, -1)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
