package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/log"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	conn
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB, timeout time.Duration) *GormFollowRepository {
	return &GormFollowRepository{conn: newConn(db, timeout)}
}

// Follow makes sure both users have a record and inserts the edge in one
// transaction. An existing edge hits the unique pair index and is skipped.
func (r *GormFollowRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ensureUsers(tx, []string{followerID, followingID}); err != nil {
			return err
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.FollowModel{
			FollowerID:  followerID,
			FollowingID: followingID,
		})
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldUserID, followerID).
			Str(log.FieldTargetID, followingID).
			Msg("failed to create follow edge")
		return false, classify(err)
	}
	return created, nil
}

// Unfollow deletes the edge if present.
func (r *GormFollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	result := db.
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&domain.FollowModel{})
	if result.Error != nil {
		return false, classify(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListFollowing returns the ids userID follows, most recent edge first.
func (r *GormFollowRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return r.pluck(ctx, "following_id", "follower_id = ?", userID)
}

// ListFollowers returns the ids following userID, most recent edge first.
func (r *GormFollowRepository) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return r.pluck(ctx, "follower_id", "following_id = ?", userID)
}

func (r *GormFollowRepository) pluck(ctx context.Context, column, where, userID string) ([]string, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	ids := []string{}
	err := db.Model(&domain.FollowModel{}).
		Where(where, userID).
		Order("created_at DESC").Order("id DESC").
		Pluck(column, &ids).Error
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

// BatchIsFollowing checks if followerID follows each of the targetIDs.
func (r *GormFollowRepository) BatchIsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = false
	}
	if len(targetIDs) == 0 {
		return result, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var following []string
	err := db.Model(&domain.FollowModel{}).
		Where("follower_id = ? AND following_id IN ?", followerID, targetIDs).
		Pluck("following_id", &following).Error
	if err != nil {
		return nil, classify(err)
	}

	for _, id := range following {
		result[id] = true
	}
	return result, nil
}

func (r *GormFollowRepository) GetFollowersCount(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "following_id = ?", userID)
}

func (r *GormFollowRepository) GetFollowingCount(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "follower_id = ?", userID)
}

func (r *GormFollowRepository) count(ctx context.Context, where, userID string) (int64, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&domain.FollowModel{}).Where(where, userID).Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

var _ FollowRepository = (*GormFollowRepository)(nil)
