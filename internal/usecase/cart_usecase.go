package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"github.com/google/uuid"
)

// カートの操作
const (
	CartOpAdd    = "add"
	CartOpSet    = "set"
	CartOpRemove = "remove"
)

// CartUsecase は cookie(dtk_cart_id) のカートを扱う。ゲストもログインユーザーも同じ
type CartUsecase struct {
	tx    repo.TransactionManager
	carts repo.CartRepository
	items repo.CartItemRepository
	newID func() string
}

// DI
func NewCartUsecase(tx repo.TransactionManager, carts repo.CartRepository, items repo.CartItemRepository) *CartUsecase {
	return &CartUsecase{tx: tx, carts: carts, items: items, newID: uuid.NewString}
}

type CartLine struct {
	PartNo string `json:"partNo"`
	Qty    int64  `json:"qty"`
}

type CartView struct {
	ID    string     `json:"id"`
	Items []CartLine `json:"items"`
}

type CartOutput struct {
	OK   bool     `json:"ok"`
	Cart CartView `json:"cart"`
}

// POST /api/cart の入力。qty は小数でも来るので切り捨てる
type MutateCartInput struct {
	Op     string
	PartNo string
	Qty    *float64
}

// ResolveCart は使うカートを決める。返したIDで cookie を必ず書き直す
func (u *CartUsecase) ResolveCart(ctx context.Context, cookieCartID string, userID *int64) (model.Cart, error) {
	cookieCart, err := u.findCookieCart(ctx, cookieCartID, userID)
	if err != nil {
		return model.Cart{}, err
	}

	var userCart *model.Cart
	if userID != nil {
		c, err := u.carts.FindActiveByUserID(ctx, *userID)
		switch {
		case err == nil:
			userCart = &c
		case errors.Is(err, repo.ErrNotFound):
		default:
			return model.Cart{}, errDB()
		}
	}

	// 両方あれば cookie 側をユーザー側へ合算して消す
	if userCart != nil && cookieCart != nil && userCart.ID != cookieCart.ID {
		if err := u.merge(ctx, userCart.ID, cookieCart.ID); err != nil {
			return model.Cart{}, err
		}
		return *userCart, nil
	}

	if userID != nil && cookieCart != nil && cookieCart.UserID == nil {
		if err := u.carts.AttachUser(ctx, cookieCart.ID, *userID); err != nil {
			return model.Cart{}, errDB()
		}
		cookieCart.UserID = userID
		return *cookieCart, nil
	}

	if userCart != nil {
		return *userCart, nil
	}
	if cookieCart != nil {
		return *cookieCart, nil
	}

	created := model.Cart{ID: u.newID(), UserID: userID, Status: model.CartStatusActive}
	if err := u.carts.Create(ctx, created); err != nil {
		return model.Cart{}, errDB()
	}
	return created, nil
}

// ACTIVEでない・他人のカートは無かったことにする
func (u *CartUsecase) findCookieCart(ctx context.Context, cookieCartID string, userID *int64) (*model.Cart, error) {
	id := strings.TrimSpace(cookieCartID)
	if id == "" {
		return nil, nil
	}

	c, err := u.carts.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errDB()
	}

	if c.Status != model.CartStatusActive {
		return nil, nil
	}
	if userID != nil && c.UserID != nil && *c.UserID != *userID {
		return nil, nil
	}
	return &c, nil
}

func (u *CartUsecase) merge(ctx context.Context, targetID, sourceID string) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lines, err := r.CartItems().ListByCartID(ctx, sourceID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := r.CartItems().Increment(ctx, targetID, l.PartNo, l.Qty); err != nil {
				return err
			}
		}
		return r.Carts().Delete(ctx, sourceID)
	})
	if err != nil {
		return errDB()
	}
	return nil
}

// View はカートの中身（作成順）
func (u *CartUsecase) View(ctx context.Context, cartID string) (CartView, error) {
	lines, err := u.items.ListByCartID(ctx, cartID)
	if err != nil {
		return CartView{}, errDB()
	}

	out := CartView{ID: cartID, Items: make([]CartLine, 0, len(lines))}
	for _, l := range lines {
		out.Items = append(out.Items, CartLine{PartNo: l.PartNo, Qty: l.Qty})
	}
	return out, nil
}

// ValidateMutation はカートを触る前に入力を確かめる
func ValidateMutation(in MutateCartInput) error {
	if strings.TrimSpace(in.PartNo) == "" {
		return NewHTTPError(http.StatusBadRequest, "Missing partNo")
	}
	switch in.Op {
	case CartOpAdd, CartOpSet, CartOpRemove:
		return nil
	default:
		return NewHTTPError(http.StatusBadRequest, "Invalid op")
	}
}

// Mutate は add / set / remove
func (u *CartUsecase) Mutate(ctx context.Context, cartID string, in MutateCartInput) (CartView, error) {
	if err := ValidateMutation(in); err != nil {
		return CartView{}, err
	}
	partNo := strings.TrimSpace(in.PartNo)

	var err error
	switch in.Op {
	case CartOpAdd:
		err = u.items.Increment(ctx, cartID, partNo, addQty(in.Qty))
	case CartOpSet:
		qty := setQty(in.Qty)
		if qty == 0 {
			err = u.items.DeleteLine(ctx, cartID, partNo)
		} else {
			err = u.items.SetQty(ctx, cartID, partNo, qty)
		}
	case CartOpRemove:
		err = u.items.DeleteLine(ctx, cartID, partNo)
	}
	if err != nil {
		return CartView{}, errDB()
	}

	return u.View(ctx, cartID)
}

// Restore は決済失敗後に明細を戻す（add と同じ加算）
func (u *CartUsecase) Restore(ctx context.Context, cartID string, lines []CartLine) (CartView, error) {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, l := range lines {
			partNo := strings.TrimSpace(l.PartNo)
			if partNo == "" {
				continue
			}
			qty := float64(l.Qty)
			if err := r.CartItems().Increment(ctx, cartID, partNo, addQty(&qty)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CartView{}, errDB()
	}

	return u.View(ctx, cartID)
}

// max(1, floor(qty ?? 1))
func addQty(q *float64) int64 {
	if q == nil || math.IsNaN(*q) || math.IsInf(*q, 0) {
		return 1
	}
	return max(1, int64(math.Floor(*q)))
}

// max(0, floor(qty ?? 0))
func setQty(q *float64) int64 {
	if q == nil || math.IsNaN(*q) || math.IsInf(*q, 0) {
		return 0
	}
	return max(0, int64(math.Floor(*q)))
}
