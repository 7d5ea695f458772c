package search

import (
	"context"
	"fmt"

	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/domain"
)

// PostIndex finds posts by title or caption. Search returns matching post
// ids, newest first, and the total number of matches.
type PostIndex interface {
	Index(ctx context.Context, post *domain.Post) error
	Remove(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, offset, limit int) ([]string, int64, error)
}

// New builds the index named by cfg.Driver: "database" (the default) or
// "elasticsearch".
func New(cfg config.SearchConfig, posts IDSearcher) (PostIndex, error) {
	switch cfg.Driver {
	case "", "database":
		return NewDatabaseIndex(posts), nil
	case "elasticsearch":
		client, err := NewESClient(cfg.Addresses)
		if err != nil {
			return nil, err
		}
		return NewESIndex(client, cfg.Index), nil
	}
	return nil, fmt.Errorf("unknown search driver %q", cfg.Driver)
}
