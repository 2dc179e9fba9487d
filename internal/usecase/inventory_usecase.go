package usecase

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/inventory"
)

// InventorySearcher は在庫の検索・1件引き（inventory.Resolver）
type InventorySearcher interface {
	Search(ctx context.Context, q inventory.Query) (inventory.SearchResult, error)
	FindByPartNo(ctx context.Context, partNo string) (*inventory.Row, error)
}

type InventoryUsecase struct {
	inv        InventorySearcher
	accessCode string
}

// DI。accessCode が空なら特権検索は無効
func NewInventoryUsecase(inv InventorySearcher, accessCode string) *InventoryUsecase {
	return &InventoryUsecase{inv: inv, accessCode: strings.TrimSpace(accessCode)}
}

type InventoryItem struct {
	Item           string  `json:"item"`
	Description    string  `json:"description"`
	QtyOnHand      int64   `json:"qtyOnHand"`
	Price          float64 `json:"price"`
	CustomerPartNo string  `json:"customerPartNo"`
}

type InventorySearchOutput struct {
	OK         bool            `json:"ok"`
	Privileged bool            `json:"privileged"`
	Count      int             `json:"count"`
	Items      []InventoryItem `json:"items"`
}

type InventoryLookupOutput struct {
	OK    bool           `json:"ok"`
	Found bool           `json:"found"`
	Item  *InventoryItem `json:"item,omitempty"`
}

// Privileged はアクセスコードが一致するか
func (u *InventoryUsecase) Privileged(provided string) bool {
	provided = strings.TrimSpace(provided)
	if u.accessCode == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(u.accessCode)) == 1
}

// Search は q を field で部分一致検索する
func (u *InventoryUsecase) Search(ctx context.Context, q, field, accessCode string) (InventorySearchOutput, error) {
	privileged := u.Privileged(accessCode)

	res, err := u.inv.Search(ctx, inventory.Query{
		Q:          q,
		Field:      parseField(field),
		Privileged: privileged,
	})
	if err != nil {
		slog.ErrorContext(ctx, "inventory read failed", slog.Any("err", err))
		return InventorySearchOutput{}, NewHTTPError(http.StatusInternalServerError, "Failed to read inventory.csv")
	}

	items := make([]InventoryItem, 0, len(res.Items))
	for _, r := range res.Items {
		items = append(items, toInventoryItem(r))
	}
	return InventorySearchOutput{OK: true, Privileged: privileged, Count: res.Count, Items: items}, nil
}

// Lookup は部品番号（別名含む）で1件引く。客先品番は特権のみ
func (u *InventoryUsecase) Lookup(ctx context.Context, partNo, accessCode string) (InventoryLookupOutput, error) {
	partNo = strings.TrimSpace(partNo)
	if partNo == "" {
		return InventoryLookupOutput{}, NewHTTPError(http.StatusBadRequest, "Missing partNo")
	}

	row, err := u.inv.FindByPartNo(ctx, partNo)
	if err != nil {
		slog.ErrorContext(ctx, "inventory read failed", slog.Any("err", err))
		return InventoryLookupOutput{}, NewHTTPError(http.StatusInternalServerError, "Failed to read inventory.csv")
	}
	if row == nil {
		return InventoryLookupOutput{OK: true, Found: false}, nil
	}

	item := toInventoryItem(*row)
	if !u.Privileged(accessCode) {
		item.CustomerPartNo = ""
	}
	return InventoryLookupOutput{OK: true, Found: true, Item: &item}, nil
}

func parseField(s string) inventory.SearchField {
	switch f := inventory.SearchField(strings.ToLower(strings.TrimSpace(s))); f {
	case inventory.FieldItem, inventory.FieldCustomer, inventory.FieldDesc:
		return f
	default:
		return inventory.FieldAny
	}
}

func toInventoryItem(r inventory.Row) InventoryItem {
	return InventoryItem{
		Item:           r.Item,
		Description:    r.Description,
		QtyOnHand:      r.QtyOnHand,
		Price:          r.Price.InexactFloat64(),
		CustomerPartNo: r.CustomerPartNo,
	}
}
