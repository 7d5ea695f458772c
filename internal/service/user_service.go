package service

import (
	"context"
	"strings"

	"github.com/weiawesome/plantpal/internal/audit"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/repository"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

// userService implements UserService.
type userService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	graph   SocialGraphService
	retry   RetryPolicy
}

// NewUserService creates a new UserService instance.
func NewUserService(users repository.UserRepository, follows repository.FollowRepository, graph SocialGraphService, retry RetryPolicy) UserService {
	return &userService{
		users:   users,
		follows: follows,
		graph:   graph,
		retry:   retry,
	}
}

// RegisterUser creates the user or updates the email of an existing one.
func (s *userService) RegisterUser(ctx context.Context, id, email string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	email = strings.TrimSpace(email)
	if err := checkUserIDs("id", id); err != nil {
		return nil, err
	}
	if err := checkLen("email", email, domain.MaxEmailLen); err != nil {
		return nil, err
	}

	user, err := retry(ctx, s.retry, func(ctx context.Context) (*domain.User, error) {
		return s.users.Upsert(ctx, &domain.User{ID: id, Email: email})
	})
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldUserID, id).Msg("failed to register user")
		return nil, translate(err)
	}

	audit.Log(ctx, audit.ActionRegister, id, "user registered")
	return user, nil
}

// GetProfile returns the user with graph counts. FollowedByViewer is set
// when viewerID is another user who follows them.
func (s *userService) GetProfile(ctx context.Context, userID, viewerID string) (*domain.UserProfile, error) {
	user, err := retry(ctx, s.retry, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, translate(err)
	}

	following, err := retry(ctx, s.retry, func(ctx context.Context) (int64, error) {
		return s.follows.GetFollowingCount(ctx, userID)
	})
	if err != nil {
		return nil, translate(err)
	}

	followers, err := s.graph.GetFollowersCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{
		ID:             user.ID,
		Email:          user.Email,
		FollowingCount: following,
		FollowersCount: followers,
		CreatedAt:      user.CreatedAt,
	}

	if viewerID != "" && viewerID != userID {
		followed, err := s.graph.IsFollowing(ctx, viewerID, []string{userID})
		if err != nil {
			return nil, err
		}
		profile.FollowedByViewer = followed[userID]
	}
	return profile, nil
}

// Ensure interface is satisfied at compile time.
var _ UserService = (*userService)(nil)
