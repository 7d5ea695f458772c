package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/log"
)

// GormCommentRepository implements CommentRepository using GORM.
type GormCommentRepository struct {
	conn
}

// NewGormCommentRepository creates a new GORM-backed comment repository.
func NewGormCommentRepository(db *gorm.DB, timeout time.Duration) *GormCommentRepository {
	return &GormCommentRepository{conn: newConn(db, timeout)}
}

// Add inserts the comment after checking, in the same transaction, that
// its post still exists.
func (r *GormCommentRepository) Add(ctx context.Context, comment *domain.Comment) error {
	db, cancel := r.with(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, comment.PostID); err != nil {
			return err
		}
		return tx.Create(domain.CommentToModel(comment)).Error
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, comment.PostID).Msg("failed to add comment")
		return classify(err)
	}
	return nil
}

func (r *GormCommentRepository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var models []domain.CommentModel
	err := db.Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, classify(err)
	}
	return toComments(models), nil
}

func (r *GormCommentRepository) Latest(ctx context.Context, postID string, n int) ([]domain.Comment, error) {
	if n <= 0 {
		return []domain.Comment{}, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var models []domain.CommentModel
	err := db.Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&models).Error
	if err != nil {
		return nil, classify(err)
	}

	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return toComments(models), nil
}

func (r *GormCommentRepository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var rows []struct {
		PostID string
		Total  int64
	}
	err := db.Model(&domain.CommentModel{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}

func toComments(models []domain.CommentModel) []domain.Comment {
	comments := make([]domain.Comment, 0, len(models))
	for i := range models {
		comments = append(comments, models[i].ToDomain())
	}
	return comments
}

var _ CommentRepository = (*GormCommentRepository)(nil)
