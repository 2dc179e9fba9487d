package repository

import (
	"context"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type addressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

func (r *addressGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Address, error) {
	var a model.Address
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error
	if err != nil {
		return model.Address{}, mapError(err)
	}
	return a, nil
}

// user_idが一意なので衝突したら上書き
func (r *addressGormRepository) Upsert(ctx context.Context, a model.Address) (model.Address, error) {
	now := time.Now()
	a.ID = 0
	a.CreatedAt = now
	a.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "company", "phone", "line1", "line2",
				"city", "province", "postal_code", "country", "updated_at",
			}),
		}).
		Create(&a).Error
	if err != nil {
		return model.Address{}, mapError(err)
	}

	return r.FindByUserID(ctx, a.UserID)
}
