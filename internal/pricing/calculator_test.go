package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/Kartik-Sangwan/dtk-site/internal/inventory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type FinderMock struct{ mock.Mock }

func (m *FinderMock) FindByPartNo(ctx context.Context, partNo string) (*inventory.Row, error) {
	args := m.Called(ctx, partNo)
	r, _ := args.Get(0).(*inventory.Row)
	return r, args.Error(1)
}

func (m *FinderMock) FindMany(ctx context.Context, partNos []string) (map[string]*inventory.Row, error) {
	args := m.Called(ctx, partNos)
	r, _ := args.Get(0).(map[string]*inventory.Row)
	return r, args.Error(1)
}

func row(item, desc, price string, qty int64) *inventory.Row {
	return &inventory.Row{Item: item, Description: desc, Price: decimal.RequireFromString(price), QtyOnHand: qty}
}

func TestSummarize_Scenario(t *testing.T) {
	inv := new(FinderMock)
	inv.On("FindMany", mock.Anything, []string{"DAC-250F"}).
		Return(map[string]*inventory.Row{"DAC-250F": row("DAC-250F", "Rod clevis", "24.50", 10)}, nil)

	s, err := NewCalculator(inv).Summarize(context.Background(), []Line{{PartNo: "DAC-250F", Qty: 2}})
	require.NoError(t, err)

	assert.Equal(t, int64(4900), s.SubtotalCents)
	assert.Equal(t, int64(490), s.ShippingCents)
	assert.Equal(t, int64(637), s.TaxCents)
	assert.Equal(t, int64(6027), s.TotalCents)
	assert.Equal(t, "CAD", s.Currency)
	assert.Equal(t, 1, s.PricedCount)

	require.Len(t, s.Lines, 1)
	assert.Equal(t, "Rod clevis", s.Lines[0].Name)
	assert.Equal(t, int64(2450), s.Lines[0].UnitPriceCents)
	assert.Equal(t, int64(4900), s.Lines[0].LineTotalCents)
	inv.AssertExpectations(t)
}

func TestSummarize_DropsInvalidAndKeepsUnpriced(t *testing.T) {
	inv := new(FinderMock)
	inv.On("FindMany", mock.Anything, []string{"A-1", "GHOST"}).
		Return(map[string]*inventory.Row{
			"A-1":   row("A-1", "", "1.005", 1),
			"GHOST": nil,
		}, nil)

	s, err := NewCalculator(inv).Summarize(context.Background(), []Line{
		{PartNo: " A-1 ", Qty: 3},
		{PartNo: "", Qty: 1},
		{PartNo: "ZERO", Qty: 0},
		{PartNo: "NEG", Qty: -2},
		{PartNo: "GHOST", Qty: 1},
	})
	require.NoError(t, err)

	require.Len(t, s.Lines, 2)
	// 名前が無ければ部品番号
	assert.Equal(t, "A-1", s.Lines[0].Name)
	// 1.005 → 100.5 → 101
	assert.Equal(t, int64(101), s.Lines[0].UnitPriceCents)
	assert.True(t, s.Lines[0].Priced)

	assert.Equal(t, "GHOST", s.Lines[1].Name)
	assert.False(t, s.Lines[1].Priced)
	assert.Equal(t, int64(0), s.Lines[1].LineTotalCents)

	assert.Equal(t, 1, s.PricedCount)
	assert.Equal(t, int64(303), s.SubtotalCents)
}

func TestSummarize_FinderError(t *testing.T) {
	inv := new(FinderMock)
	inv.On("FindMany", mock.Anything, mock.Anything).Return(nil, errors.New("open inventory: no such file"))

	_, err := NewCalculator(inv).Summarize(context.Background(), []Line{{PartNo: "A", Qty: 1}})
	assert.Error(t, err)
}

func TestTotals_RoundEachFieldIndependently(t *testing.T) {
	c := NewCalculator(nil)

	cases := []struct {
		subtotal                 int64
		shipping, tax, wantTotal int64
	}{
		{0, 0, 0, 0},
		{5, 1, 1, 7},        // 0.5→1, 0.65→1
		{15, 2, 2, 19},      // 1.5→2, 1.95→2
		{4900, 490, 637, 6027},
		{12345, 1235, 1605, 15185}, // 1234.5→1235, 1604.85→1605
	}
	for _, tc := range cases {
		shipping, tax, total := c.Totals(tc.subtotal)
		assert.Equal(t, tc.shipping, shipping, "shipping for %d", tc.subtotal)
		assert.Equal(t, tc.tax, tax, "tax for %d", tc.subtotal)
		assert.Equal(t, tc.wantTotal, total, "total for %d", tc.subtotal)
		assert.Equal(t, tc.subtotal+shipping+tax, total)
	}
}

func TestMajor(t *testing.T) {
	assert.Equal(t, 60.27, Major(6027))
	assert.Equal(t, 0.0, Major(0))
}
