package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/testutil"
)

var base = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type repos struct {
	users    *GormUserRepository
	follows  *GormFollowRepository
	posts    *GormPostRepository
	comments *GormCommentRepository
}

func newRepos(t *testing.T) repos {
	db := testutil.NewDB(t)
	return repos{
		users:    NewGormUserRepository(db, time.Second),
		follows:  NewGormFollowRepository(db, time.Second),
		posts:    NewGormPostRepository(db, time.Second),
		comments: NewGormCommentRepository(db, time.Second),
	}
}

func newPost(t *testing.T, r repos, author string, at time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		AuthorID:  author,
		Title:     "title " + author,
		Caption:   "caption",
		CreatedAt: at,
	}
	require.NoError(t, r.posts.Create(context.Background(), p))
	return p
}

func TestUserRepository_UpsertKeepsEmail(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	u, err := r.users.Upsert(ctx, &domain.User{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", u.Email)

	u, err = r.users.Upsert(ctx, &domain.User{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", u.Email)

	u, err = r.users.Upsert(ctx, &domain.User{ID: "u1", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)

	_, err = r.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFollowRepository_FollowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	created, err := r.follows.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.follows.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, created)

	following, err := r.follows.ListFollowing(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, following)

	followers, err := r.follows.ListFollowers(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, followers)

	for _, id := range []string{"a", "b"} {
		exists, err := r.users.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists, id)
	}

	removed, err := r.follows.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.follows.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, removed)

	following, err = r.follows.ListFollowing(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestFollowRepository_CountsAndBatch(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	for _, f := range []string{"a", "b", "c"} {
		_, err := r.follows.Follow(ctx, f, "star")
		require.NoError(t, err)
	}
	_, err := r.follows.Follow(ctx, "a", "c")
	require.NoError(t, err)

	n, err := r.follows.GetFollowersCount(ctx, "star")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = r.follows.GetFollowingCount(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := r.follows.BatchIsFollowing(ctx, "a", []string{"star", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"star": true, "b": false, "c": true}, got)
}

func TestPostRepository_LikeCountMatchesLikers(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := newPost(t, r, "author", base)

	changed, err := r.posts.Like(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.posts.Like(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = r.posts.Like(ctx, p.ID, "u2")
	require.NoError(t, err)

	got, err := r.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.LikeCount)

	changed, err = r.posts.Unlike(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = r.posts.Unlike(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.False(t, changed)

	got, err = r.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.LikeCount)

	liked, err := r.posts.LikedBy(ctx, "u2", []string{p.ID})
	require.NoError(t, err)
	assert.True(t, liked[p.ID])

	_, err = r.posts.Like(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = r.posts.Unlike(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepository_ListByAuthorsPagesInOrder(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	var want []string
	for i := 0; i < 5; i++ {
		// Two posts share each timestamp so ties are broken by id.
		at := base.Add(time.Duration(i/2) * time.Minute)
		p := newPost(t, r, fmt.Sprintf("a%d", i%2), at)
		want = append(want, p.ID)
	}
	newPost(t, r, "stranger", base.Add(time.Hour))

	var got []string
	var cursor *domain.Cursor
	for {
		page, err := r.posts.ListByAuthors(ctx, []string{"a0", "a1"}, cursor, 2)
		require.NoError(t, err)
		for _, p := range page {
			got = append(got, p.ID)
			assert.NotEqual(t, "stranger", p.AuthorID)
		}
		if len(page) < 2 {
			break
		}
		cursor = domain.CursorAfter(page[len(page)-1])
	}

	require.Len(t, got, len(want))
	posts, err := r.posts.GetByIDs(ctx, got)
	require.NoError(t, err)
	for i := 1; i < len(posts); i++ {
		prev, cur := posts[i-1], posts[i]
		ordered := prev.CreatedAt.After(cur.CreatedAt) ||
			(prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID > cur.ID)
		assert.True(t, ordered, "posts %d and %d out of order", i-1, i)
	}
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := newPost(t, r, "author", base)
	other := newPost(t, r, "author", base.Add(time.Second))

	for i, postID := range []string{p.ID, p.ID, other.ID} {
		require.NoError(t, r.comments.Add(ctx, &domain.Comment{
			ID:        ulid.Make().String(),
			PostID:    postID,
			AuthorID:  "c",
			Text:      fmt.Sprintf("comment %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	_, err := r.posts.Like(ctx, p.ID, "fan")
	require.NoError(t, err)

	deleted, err := r.posts.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = r.posts.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	comments, err := r.comments.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	counts, err := r.comments.CountByPosts(ctx, []string{p.ID, other.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[p.ID])
	assert.EqualValues(t, 1, counts[other.ID])

	liked, err := r.posts.LikedBy(ctx, "fan", []string{p.ID})
	require.NoError(t, err)
	assert.False(t, liked[p.ID])

	_, err = r.posts.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepository_DeleteLocksPostBeforeCascade(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	posts := NewGormPostRepository(db, time.Second)
	comments := NewGormCommentRepository(db, time.Second)

	p := &domain.Post{ID: ulid.Make().String(), AuthorID: "author", Title: "Fern", Caption: "new", CreatedAt: base}
	require.NoError(t, posts.Create(ctx, p))
	require.NoError(t, comments.Add(ctx, &domain.Comment{
		ID: ulid.Make().String(), PostID: p.ID, AuthorID: "c", Text: "nice", CreatedAt: base,
	}))

	var steps []string
	record := func(kind string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			step := kind + " " + tx.Statement.Table
			if _, ok := tx.Statement.Clauses["FOR"]; ok {
				step += " for update"
			}
			steps = append(steps, step)
		}
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:record_query", record("select")))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:record_delete", record("delete")))

	_, err := posts.Delete(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"select posts for update",
		"delete comments",
		"delete post_likes",
		"delete posts",
	}, steps)
}

func TestPostRepository_WritersAfterDeleteFindNoPost(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := newPost(t, r, "author", base)

	_, err := r.posts.Delete(ctx, p.ID)
	require.NoError(t, err)

	err = r.comments.Add(ctx, &domain.Comment{
		ID: ulid.Make().String(), PostID: p.ID, AuthorID: "late", Text: "too late", CreatedAt: base,
	})
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = r.posts.Like(ctx, p.ID, "late")
	assert.ErrorIs(t, err, ErrPostNotFound)

	comments, err := r.comments.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentRepository_LatestIsChronological(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := newPost(t, r, "author", base)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.comments.Add(ctx, &domain.Comment{
			ID:        ulid.Make().String(),
			PostID:    p.ID,
			AuthorID:  "c",
			Text:      fmt.Sprintf("c%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	latest, err := r.comments.Latest(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "c3", latest[0].Text)
	assert.Equal(t, "c4", latest[1].Text)

	err = r.comments.Add(ctx, &domain.Comment{ID: ulid.Make().String(), PostID: "missing", Text: "x", CreatedAt: base})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepository_SearchIDs(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	fern := &domain.Post{ID: ulid.Make().String(), AuthorID: "a", Title: "Boston Fern", Caption: "new plant", CreatedAt: base}
	cactus := &domain.Post{ID: ulid.Make().String(), AuthorID: "a", Title: "Cactus", Caption: "100% dry", CreatedAt: base.Add(time.Second)}
	require.NoError(t, r.posts.Create(ctx, fern))
	require.NoError(t, r.posts.Create(ctx, cactus))

	ids, total, err := r.posts.SearchIDs(ctx, "fern", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []string{fern.ID}, ids)

	ids, total, err = r.posts.SearchIDs(ctx, "100%", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []string{cactus.ID}, ids)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(context.DeadlineExceeded), ErrStoreUnavailable)
	assert.ErrorIs(t, classify(fmt.Errorf("sql: database is closed")), ErrStoreUnavailable)
	assert.NotErrorIs(t, classify(ErrPostNotFound), ErrStoreUnavailable)
}

func TestRepository_ClosedDatabaseIsUnavailable(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormPostRepository(db, time.Second)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.GetByID(context.Background(), "any")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
