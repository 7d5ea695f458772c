package search

import (
	"context"

	"github.com/weiawesome/plantpal/internal/domain"
)

// IDSearcher is implemented by the post repository.
type IDSearcher interface {
	SearchIDs(ctx context.Context, query string, offset, limit int) ([]string, int64, error)
}

// DatabaseIndex searches the posts table directly, so there is nothing to
// index or remove.
type DatabaseIndex struct {
	repo IDSearcher
}

func NewDatabaseIndex(repo IDSearcher) *DatabaseIndex {
	return &DatabaseIndex{repo: repo}
}

func (d *DatabaseIndex) Index(context.Context, *domain.Post) error { return nil }

func (d *DatabaseIndex) Remove(context.Context, string) error { return nil }

func (d *DatabaseIndex) Search(ctx context.Context, query string, offset, limit int) ([]string, int64, error) {
	return d.repo.SearchIDs(ctx, query, offset, limit)
}

var _ PostIndex = (*DatabaseIndex)(nil)
