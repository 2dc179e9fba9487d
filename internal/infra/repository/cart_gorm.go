package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository と CartItemRepository の両方を実装
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) Create(ctx context.Context, cart model.Cart) error {
	if cart.ID == "" {
		return errors.New("cart id required")
	}
	return mapError(r.db.WithContext(ctx).Create(&cart).Error)
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID string) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("id = ?", cartID).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, mapError(err)
	}
	return cart, nil
}

// ユーザーのACTIVEカートを取得（新しいもの）
func (r *CartGormRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive).
		Order("created_at desc").
		First(&cart).Error
	if err != nil {
		return model.Cart{}, mapError(err)
	}
	return cart, nil
}

// 持ち主のいないカートだけユーザーに紐づける
func (r *CartGormRepository) AttachUser(ctx context.Context, cartID string, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ? AND user_id IS NULL", cartID).
		Update("user_id", userID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// carts.statusを更新
func (r *CartGormRepository) UpdateStatus(ctx context.Context, cartID string, status model.CartStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細→カートの順に削除
func (r *CartGormRepository) Delete(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", cartID).Delete(&model.Cart{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at asc, id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一部品は数量加算
func (r *CartGormRepository) Increment(ctx context.Context, cartID string, partNo string, inc int64) error {
	if inc <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		CartID:    cartID,
		PartNo:    partNo,
		Qty:       inc,
		CreatedAt: now,
		UpdatedAt: now,
	}

	//(cart_id, part_no) が既にあれば足す
	return mapError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "part_no"}},
			DoUpdates: clause.Assignments(map[string]any{
				"qty":        gorm.Expr("cart_items.qty + ?", inc),
				"updated_at": now,
			}),
		}).
		Create(&item).Error)
}

// 数量を上書き
func (r *CartGormRepository) SetQty(ctx context.Context, cartID string, partNo string, qty int64) error {
	if qty <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		CartID:    cartID,
		PartNo:    partNo,
		Qty:       qty,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return mapError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "part_no"}},
			DoUpdates: clause.Assignments(map[string]any{
				"qty":        qty,
				"updated_at": now,
			}),
		}).
		Create(&item).Error)
}

// 明細を削除（無くてもエラーにしない）
func (r *CartGormRepository) DeleteLine(ctx context.Context, cartID string, partNo string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND part_no = ?", cartID, partNo).
		Delete(&model.CartItem{}).Error
}
