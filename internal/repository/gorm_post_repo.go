package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/log"
)

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	conn
}

// NewGormPostRepository creates a new GORM-backed post repository.
func NewGormPostRepository(db *gorm.DB, timeout time.Duration) *GormPostRepository {
	return &GormPostRepository{conn: newConn(db, timeout)}
}

func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	db, cancel := r.with(ctx)
	defer cancel()

	if err := db.Create(domain.PostToModel(post)).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, post.ID).Msg("failed to create post in db")
		return classify(err)
	}
	return nil
}

func (r *GormPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var model domain.PostModel
	if err := db.Take(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, classify(err)
	}
	return model.ToDomain(), nil
}

// GetByIDs returns the posts that exist, in the order of ids.
func (r *GormPostRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var models []domain.PostModel
	if err := db.Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, classify(err)
	}

	byID := make(map[string]*domain.Post, len(models))
	for i := range models {
		byID[models[i].ID] = models[i].ToDomain()
	}
	posts := make([]*domain.Post, 0, len(models))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (r *GormPostRepository) ListByAuthors(ctx context.Context, authorIDs []string, after *domain.Cursor, limit int) ([]*domain.Post, error) {
	if len(authorIDs) == 0 || limit <= 0 {
		return []*domain.Post{}, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	query := db.Where("author_id IN ?", authorIDs)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			after.CreatedAt, after.CreatedAt, after.ID)
	}

	var models []domain.PostModel
	err := query.
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("authors", len(authorIDs)).Msg("failed to list posts by authors")
		return nil, classify(err)
	}

	posts := make([]*domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, models[i].ToDomain())
	}
	return posts, nil
}

// Delete removes comments, likes and the post itself in one transaction.
// The post row is locked first, the same lock Like and comment Add take, so
// a concurrent writer either commits before the cascade runs or finds the
// post gone.
func (r *GormPostRepository) Delete(ctx context.Context, id string) (*domain.Post, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var model domain.PostModel
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&model, "id = ?", id).Error
		if err != nil {
			if isNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.CommentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.LikeModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.PostModel{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return model.ToDomain(), nil
}

// Like inserts the like row and bumps like_count only when the row is new,
// so like_count always equals the number of like rows.
func (r *GormPostRepository) Like(ctx context.Context, postID, userID string) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	changed := false
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.LikeModel{
			PostID: postID,
			UserID: userID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		changed = true
		return tx.Model(&domain.PostModel{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return false, classify(err)
	}
	return changed, nil
}

// Unlike deletes the like row and decrements like_count only when a row
// was removed.
func (r *GormPostRepository) Unlike(ctx context.Context, postID, userID string) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	changed := false
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}

		result := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&domain.LikeModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		changed = true
		return tx.Model(&domain.PostModel{}).
			Where("id = ? AND like_count > 0", postID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	})
	if err != nil {
		return false, classify(err)
	}
	return changed, nil
}

// lockPost checks the post exists and, on databases with row locks, holds
// it until the transaction ends.
func lockPost(tx *gorm.DB, postID string) error {
	var model domain.PostModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Take(&model, "id = ?", postID).Error
	if isNotFound(err) {
		return ErrPostNotFound
	}
	return err
}

func (r *GormPostRepository) LikedBy(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var ids []string
	err := db.Model(&domain.LikeModel{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, classify(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *GormPostRepository) SearchIDs(ctx context.Context, query string, offset, limit int) ([]string, int64, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	matching := func() *gorm.DB {
		return db.Model(&domain.PostModel{}).
			Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(caption) LIKE ? ESCAPE '!'", pattern, pattern)
	}

	var total int64
	if err := matching().Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	ids := []string{}
	err := matching().
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, 0, classify(err)
	}
	return ids, total, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ PostRepository = (*GormPostRepository)(nil)
