package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderStatus(t *testing.T) {
	for _, s := range AllOrderStatuses {
		got, ok := ParseOrderStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}

	_, ok := ParseOrderStatus("paid")
	assert.False(t, ok)
	_, ok = ParseOrderStatus("")
	assert.False(t, ok)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, OrderStatusFulfilled.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatusAwaitingPayment.IsTerminal())
}

func TestOrder_Label(t *testing.T) {
	assert.Equal(t, "DTK-ABC123", Order{ID: "uuid", PublicRef: "DTK-ABC123"}.Label())
	assert.Equal(t, "uuid", Order{ID: "uuid"}.Label())
}

func TestRole_IsStaff(t *testing.T) {
	assert.True(t, RoleSales.IsStaff())
	assert.True(t, RoleOps.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, Role("").IsStaff())
}

func TestAuthToken_Usable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	consumed := now.Add(-time.Minute)

	assert.True(t, AuthToken{ExpiresAt: now.Add(time.Minute)}.Usable(now))
	assert.False(t, AuthToken{ExpiresAt: now}.Usable(now))
	assert.False(t, AuthToken{ExpiresAt: now.Add(time.Hour), ConsumedAt: &consumed}.Usable(now))
}

func TestCart_OwnedBy(t *testing.T) {
	id := int64(7)
	assert.True(t, Cart{UserID: &id}.OwnedBy(7))
	assert.False(t, Cart{UserID: &id}.OwnedBy(8))
	assert.False(t, Cart{}.OwnedBy(7))
}

func TestOrderItem_LineTotal(t *testing.T) {
	assert.Equal(t, int64(1350), OrderItem{Qty: 3, UnitPriceCents: 450}.LineTotalCents())
}
