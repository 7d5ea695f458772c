package search

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/repository"
	"github.com/weiawesome/plantpal/internal/testutil"
)

func TestDatabaseIndex_Search(t *testing.T) {
	ctx := context.Background()
	posts := repository.NewGormPostRepository(testutil.NewDB(t), time.Second)

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i, title := range []string{"Fern", "Cactus", "100% fern"} {
		created := at.Add(time.Duration(i) * time.Minute)
		p := &domain.Post{
			ID:        ulid.MustNew(ulid.Timestamp(created), ulid.DefaultEntropy()).String(),
			AuthorID:  "a",
			Title:     title,
			Caption:   "caption",
			CreatedAt: created,
		}
		require.NoError(t, posts.Create(ctx, p))
		ids = append(ids, p.ID)
	}

	idx, err := New(config.SearchConfig{Driver: "database"}, posts)
	require.NoError(t, err)

	// Indexing is a no-op: the posts table is the index.
	require.NoError(t, idx.Index(ctx, &domain.Post{ID: "x"}))
	require.NoError(t, idx.Remove(ctx, "x"))

	got, total, err := idx.Search(ctx, "FERN", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []string{ids[2], ids[0]}, got)

	got, total, err = idx.Search(ctx, "100%", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []string{ids[2]}, got)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(config.SearchConfig{Driver: "solr"}, nil)
	assert.Error(t, err)
}
