package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	conn
}

// NewGormUserRepository creates a new GORM-backed user repository.
func NewGormUserRepository(db *gorm.DB, timeout time.Duration) *GormUserRepository {
	return &GormUserRepository{conn: newConn(db, timeout)}
}

// Upsert inserts the user, or updates the email of an existing one when a
// new email is given. An empty email never overwrites a stored one.
func (r *GormUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	l := log.Ctx(ctx)
	db, cancel := r.with(ctx)
	defer cancel()

	model := domain.UserModel{ID: user.ID, Email: user.Email}
	onConflict := clause.OnConflict{DoNothing: true}
	if user.Email != "" {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}
	}

	if err := db.Clauses(onConflict).Create(&model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to upsert user")
		return nil, classify(err)
	}

	var stored domain.UserModel
	if err := db.Take(&stored, "id = ?", user.ID).Error; err != nil {
		return nil, classify(err)
	}
	return stored.ToDomain(), nil
}

// EnsureExists inserts empty user rows for ids without one.
func (r *GormUserRepository) EnsureExists(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	db, cancel := r.with(ctx)
	defer cancel()
	return classify(ensureUsers(db, ids))
}

func ensureUsers(tx *gorm.DB, ids []string) error {
	models := make([]domain.UserModel, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		models = append(models, domain.UserModel{ID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models).Error
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var model domain.UserModel
	if err := db.Take(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, id).Msg("failed to get user by id")
		return nil, classify(err)
	}
	return model.ToDomain(), nil
}

func (r *GormUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&domain.UserModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

// ListIDs returns up to limit user ids, oldest account first.
func (r *GormUserRepository) ListIDs(ctx context.Context, limit int) ([]string, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var ids []string
	err := db.Model(&domain.UserModel{}).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

var _ UserRepository = (*GormUserRepository)(nil)
