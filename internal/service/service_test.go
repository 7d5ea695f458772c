package service

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/plantpal/internal/clock"
	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/media"
	"github.com/weiawesome/plantpal/internal/repository"
	"github.com/weiawesome/plantpal/internal/search"
	"github.com/weiawesome/plantpal/internal/store"
	"github.com/weiawesome/plantpal/internal/testutil"
	"github.com/weiawesome/plantpal/pkg/storage"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// recordingPublisher records events and forwards them to a handler.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []domain.ActivityEvent
	handler interface {
		HandleActivityEvent(ctx context.Context, event *domain.ActivityEvent) error
	}
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.ActivityEvent) error {
	p.mu.Lock()
	p.events = append(p.events, *event)
	p.mu.Unlock()
	if p.handler != nil {
		return p.handler.HandleActivityEvent(ctx, event)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	clock     *clock.StubClock
	publisher *recordingPublisher
	mr        *miniredis.Miniredis
	cache     *store.RedisFollowStore
	users     *repository.GormUserRepository
	follows   *repository.GormFollowRepository
	posts     *repository.GormPostRepository
	comments  *repository.GormCommentRepository
	images    *media.ImageStore

	graph SocialGraphService
	feed  FeedService
	post  PostService
	user  UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	cache, err := store.NewRedisFollowStore(config.RedisConfig{Address: mr.Addr()}, config.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	local, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	f := &fixture{
		db:        db,
		clock:     clock.NewStubClock(start),
		publisher: &recordingPublisher{},
		mr:        mr,
		cache:     cache,
		users:     repository.NewGormUserRepository(db, time.Second),
		follows:   repository.NewGormFollowRepository(db, time.Second),
		posts:     repository.NewGormPostRepository(db, time.Second),
		comments:  repository.NewGormCommentRepository(db, time.Second),
		images:    media.NewImageStore(local, media.NewProcessor(config.MediaConfig{MaxWidth: 64})),
	}
	index := search.NewDatabaseIndex(f.posts)
	policy := RetryPolicy{Attempts: 2, Backoff: time.Millisecond}
	feedCfg := config.FeedConfig{DefaultPageSize: 20, MaxPageSize: 100, CommentPreview: 3}

	f.graph = NewSocialGraphService(f.users, f.follows, cache, f.publisher, f.clock, policy, time.Minute)
	f.publisher.handler = f.graph
	f.feed = NewFeedService(FeedDeps{
		Users:     f.users,
		Posts:     f.posts,
		Comments:  f.comments,
		Graph:     f.graph,
		Images:    f.images,
		Index:     index,
		Publisher: f.publisher,
		Clock:     f.clock,
		Retry:     policy,
	}, feedCfg)
	f.post = NewPostService(PostDeps{
		Users:     f.users,
		Posts:     f.posts,
		Comments:  f.comments,
		Images:    f.images,
		Index:     index,
		Publisher: f.publisher,
		Clock:     f.clock,
		Retry:     policy,
	}, feedCfg)
	f.user = NewUserService(f.users, f.follows, f.graph, policy)
	return f
}

func (f *fixture) register(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.user.RegisterUser(context.Background(), id, id+"@example.com")
		require.NoError(t, err)
	}
}

// publish creates a text post and advances the clock by a second.
func (f *fixture) publish(t *testing.T, author, title string) *domain.Post {
	t.Helper()
	p, err := f.post.CreatePost(context.Background(), &domain.CreatePostInput{
		AuthorID: author,
		Title:    title,
		Caption:  "caption of " + title,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return p
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 30, G: 120, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func postIDs(views []*domain.PostView) []string {
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}
