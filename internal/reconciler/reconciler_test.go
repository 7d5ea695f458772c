package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/weiawesome/plantpal/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCache struct {
	mu     sync.Mutex
	hot    []string
	counts map[string]int64
	resets int
}

func (c *fakeCache) GetTopHotKeys(_ context.Context, n int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int64(len(c.hot)) > n {
		return c.hot[:n], nil
	}
	return c.hot, nil
}

func (c *fakeCache) SetFollowersCount(_ context.Context, userID string, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID] = count
	return nil
}

func (c *fakeCache) ResetHotKeyScores(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hot = nil
	c.resets++
	return nil
}

type fakeSource map[string]int64

func (s fakeSource) GetFollowersCount(_ context.Context, userID string) (int64, error) {
	n, ok := s[userID]
	if !ok {
		return 0, errors.New("boom")
	}
	return n, nil
}

func TestReconcile_RewritesHotCounts(t *testing.T) {
	cache := &fakeCache{hot: []string{"a", "b", "broken"}, counts: map[string]int64{"a": 99}}
	r := New(cache, fakeSource{"a": 3, "b": 1}, config.ReconcilerConfig{TopN: 10})

	updated := r.Reconcile(context.Background())

	assert.Equal(t, 2, updated)
	assert.EqualValues(t, 3, cache.counts["a"])
	assert.EqualValues(t, 1, cache.counts["b"])
	assert.NotContains(t, cache.counts, "broken")
	assert.Equal(t, 1, cache.resets)
}

func TestReconcile_RespectsTopN(t *testing.T) {
	cache := &fakeCache{hot: []string{"a", "b"}, counts: map[string]int64{}}
	r := New(cache, fakeSource{"a": 1, "b": 2}, config.ReconcilerConfig{TopN: 1})

	assert.Equal(t, 1, r.Reconcile(context.Background()))
	assert.NotContains(t, cache.counts, "b")
}

func TestReconciler_StartStop(t *testing.T) {
	cache := &fakeCache{hot: []string{"a"}, counts: map[string]int64{}}
	r := New(cache, fakeSource{"a": 7}, config.ReconcilerConfig{Interval: 10 * time.Millisecond})

	r.Start(context.Background())
	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.counts["a"] == 7
	}, time.Second, 5*time.Millisecond)

	r.Stop()
	<-r.Done()
}

func TestReconciler_StopsOnContextCancel(t *testing.T) {
	r := New(&fakeCache{counts: map[string]int64{}}, fakeSource{}, config.ReconcilerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after context cancel")
	}
}
