package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/plantpal/internal/audit"
	"github.com/weiawesome/plantpal/internal/clock"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/events"
	"github.com/weiawesome/plantpal/internal/repository"
	"github.com/weiawesome/plantpal/internal/store"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

// fillTimeout bounds a shared following-list fill, retries included.
const fillTimeout = 10 * time.Second

// socialGraphService implements SocialGraphService.
type socialGraphService struct {
	users        repository.UserRepository
	repo         repository.FollowRepository
	store        store.FollowStore
	publisher    events.Publisher
	clock        clock.Clock
	retry        RetryPolicy
	followingTTL time.Duration
	fills        singleflight.Group
}

// NewSocialGraphService creates a new SocialGraphService instance.
func NewSocialGraphService(
	users repository.UserRepository,
	repo repository.FollowRepository,
	store store.FollowStore,
	publisher events.Publisher,
	clk clock.Clock,
	retry RetryPolicy,
	followingTTL time.Duration,
) SocialGraphService {
	return &socialGraphService{
		users:        users,
		repo:         repo,
		store:        store,
		publisher:    publisher,
		clock:        clk,
		retry:        retry,
		followingTTL: followingTTL,
	}
}

func validatePair(followerID, followingID string) error {
	if err := checkUserIDs("followerId", followerID, "followingId", followingID); err != nil {
		return err
	}
	if followerID == followingID {
		return ErrSelfFollow
	}
	return nil
}

// Follow creates a follow relationship from followerID to followingID.
// Following someone already followed is a no-op.
func (s *socialGraphService) Follow(ctx context.Context, followerID, followingID string) error {
	l := pkglog.Ctx(ctx)

	if err := validatePair(followerID, followingID); err != nil {
		return err
	}

	created, err := retry(ctx, s.retry, func(ctx context.Context) (bool, error) {
		return s.repo.Follow(ctx, followerID, followingID)
	})
	if err != nil {
		l.Error().Err(err).
			Str(pkglog.FieldUserID, followerID).
			Str(pkglog.FieldTargetID, followingID).
			Msg("failed to follow user")
		return translate(err)
	}
	if !created {
		return nil
	}

	s.invalidateFollowing(ctx, followerID)
	s.publish(ctx, domain.EventUserFollowed, followerID, followingID)
	audit.LogWithTarget(ctx, audit.ActionFollow, followerID, followingID, "user followed")
	return nil
}

// Unfollow removes the follow relationship from followerID to followingID.
// Unfollowing someone not followed is a no-op.
func (s *socialGraphService) Unfollow(ctx context.Context, followerID, followingID string) error {
	l := pkglog.Ctx(ctx)

	if err := validatePair(followerID, followingID); err != nil {
		return err
	}

	removed, err := retry(ctx, s.retry, func(ctx context.Context) (bool, error) {
		return s.repo.Unfollow(ctx, followerID, followingID)
	})
	if err != nil {
		l.Error().Err(err).
			Str(pkglog.FieldUserID, followerID).
			Str(pkglog.FieldTargetID, followingID).
			Msg("failed to unfollow user")
		return translate(err)
	}
	if !removed {
		return nil
	}

	s.invalidateFollowing(ctx, followerID)
	s.publish(ctx, domain.EventUserUnfollowed, followerID, followingID)
	audit.LogWithTarget(ctx, audit.ActionUnfollow, followerID, followingID, "user unfollowed")
	return nil
}

// ListFollowing returns the ids userID follows, newest edge first. It reads
// the Redis copy first; concurrent misses for one user share a single
// database read. An unknown user gets an empty record.
func (s *socialGraphService) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	l := pkglog.Ctx(ctx)

	if err := checkUserIDs("userId", userID); err != nil {
		return nil, err
	}

	ids, err := s.store.GetFollowing(ctx, userID)
	if err == nil {
		return ids, nil
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("redis get following failed, falling back to db")
	}

	// The shared fill outlives any one caller: it runs detached from the
	// caller that started it, and each caller stops waiting on its own ctx.
	ch := s.fills.DoChan(userID, func() (interface{}, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()
		return s.loadFollowing(fillCtx, userID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			l.Error().Err(res.Err).Str(pkglog.FieldUserID, userID).Msg("failed to list following")
			return nil, translate(res.Err)
		}
		return res.Val.([]string), nil
	}
}

func (s *socialGraphService) loadFollowing(ctx context.Context, userID string) ([]string, error) {
	err := retryErr(ctx, s.retry, func(ctx context.Context) error {
		return s.users.EnsureExists(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	ids, err := retry(ctx, s.retry, func(ctx context.Context) ([]string, error) {
		return s.repo.ListFollowing(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetFollowing(ctx, userID, ids, s.followingTTL); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to cache following")
	}
	return ids, nil
}

// ListFollowers returns the ids following userID, newest edge first.
func (s *socialGraphService) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}

	ids, err := retry(ctx, s.retry, func(ctx context.Context) ([]string, error) {
		return s.repo.ListFollowers(ctx, userID)
	})
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to list followers")
		return nil, translate(err)
	}
	return ids, nil
}

// GetFollowersCount returns the number of followers for userID.
// It checks Redis first; on miss it queries the DB, populates Redis, and records a hot key access.
func (s *socialGraphService) GetFollowersCount(ctx context.Context, userID string) (int64, error) {
	l := pkglog.Ctx(ctx)

	if err := s.store.RecordAccess(ctx, userID); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to record hot key access")
	}

	count, found, err := s.store.GetFollowersCount(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("redis get followers count failed, falling back to db")
	}
	if found {
		return count, nil
	}

	count, err = retry(ctx, s.retry, func(ctx context.Context) (int64, error) {
		return s.repo.GetFollowersCount(ctx, userID)
	})
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to get followers count from db")
		return 0, translate(err)
	}

	if err := s.store.SetFollowersCount(ctx, userID, count); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to set followers count in redis")
	}

	return count, nil
}

// IsFollowing checks whether followerID follows each of the given targetIDs.
func (s *socialGraphService) IsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	result, err := retry(ctx, s.retry, func(ctx context.Context) (map[string]bool, error) {
		return s.repo.BatchIsFollowing(ctx, followerID, targetIDs)
	})
	return result, translate(err)
}

// HandleActivityEvent keeps cached followers counts in step with follow
// edges. Counts that are not cached are left for the next read to load.
func (s *socialGraphService) HandleActivityEvent(ctx context.Context, event *domain.ActivityEvent) error {
	l := pkglog.Ctx(ctx)

	switch event.Type {
	case domain.EventUserFollowed:
		if err := s.store.CondIncrFollowersCount(ctx, event.TargetID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldTargetID, event.TargetID).Msg("failed to cond incr followers count")
			return err
		}
	case domain.EventUserUnfollowed:
		if err := s.store.CondDecrFollowersCount(ctx, event.TargetID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldTargetID, event.TargetID).Msg("failed to cond decr followers count")
			return err
		}
	}
	return nil
}

func (s *socialGraphService) invalidateFollowing(ctx context.Context, userID string) {
	if err := s.store.InvalidateFollowing(ctx, userID); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to invalidate following cache")
	}
}

func (s *socialGraphService) publish(ctx context.Context, eventType, actorID, targetID string) {
	publishEvent(ctx, s.publisher, &domain.ActivityEvent{
		Type:      eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Timestamp: s.clock.NowUtc(),
	})
}

// publishEvent sends the event and logs, rather than returns, failures.
func publishEvent(ctx context.Context, publisher events.Publisher, event *domain.ActivityEvent) {
	if err := publisher.Publish(ctx, event); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).
			Str(pkglog.FieldEvent, event.Type).
			Str(pkglog.FieldUserID, event.ActorID).
			Msg("failed to publish activity event")
	}
}

// Ensure interface is satisfied at compile time.
var _ SocialGraphService = (*socialGraphService)(nil)
