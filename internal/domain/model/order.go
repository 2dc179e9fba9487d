package model

import "time"

type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusFulfilled       OrderStatus = "FULFILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// AllOrderStatuses は外部に出す順番
var AllOrderStatuses = []OrderStatus{
	OrderStatusAwaitingPayment,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusFulfilled,
	OrderStatusCancelled,
}

// ParseOrderStatus は許可された値だけ通す
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range AllOrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal は終端（これ以上変えられない）か
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "STRIPE"
)

// 注文は作成時のスナップショット。変わるのはステータス・追跡・支払い系だけ
type Order struct {
	ID            string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	PublicRef     string        `gorm:"type:varchar(20);not null;uniqueIndex" json:"publicRef"`
	UserID        *int64        `gorm:"index" json:"userId,omitempty"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	Currency      string        `gorm:"type:varchar(3);not null" json:"currency"`

	//金額はすべてセント
	SubtotalCents int64 `gorm:"not null" json:"subtotalCents"`
	ShippingCents int64 `gorm:"not null" json:"shippingCents"`
	TaxCents      int64 `gorm:"not null" json:"taxCents"`
	TotalCents    int64 `gorm:"not null" json:"totalCents"`

	ShipName     string `gorm:"type:varchar(255);not null;default:''" json:"shipName"`
	ShipCompany  string `gorm:"type:varchar(255);not null;default:''" json:"shipCompany"`
	ShipEmail    string `gorm:"type:varchar(255);not null;default:''" json:"shipEmail"`
	ShipPhone    string `gorm:"type:varchar(30);not null;default:''" json:"shipPhone"`
	ShipLine1    string `gorm:"type:varchar(255);not null" json:"shipLine1"`
	ShipLine2    string `gorm:"type:varchar(255);not null;default:''" json:"shipLine2"`
	ShipCity     string `gorm:"type:varchar(255);not null" json:"shipCity"`
	ShipProvince string `gorm:"type:varchar(100);not null" json:"shipProvince"`
	ShipPostal   string `gorm:"type:varchar(20);not null" json:"shipPostal"`
	ShipCountry  string `gorm:"type:varchar(2);not null" json:"shipCountry"`

	StripePaymentIntentID string `gorm:"type:varchar(255);not null;uniqueIndex" json:"stripePaymentIntentId"`
	ReceiptURL            string `gorm:"type:text;not null;default:''" json:"receiptUrl,omitempty"`
	TrackingURL           string `gorm:"type:text;not null;default:''" json:"trackingUrl,omitempty"`

	PaidAt    *time.Time `json:"paidAt,omitempty"`
	ShippedAt *time.Time `json:"shippedAt,omitempty"`

	ConfirmationEmailSent bool `gorm:"not null;default:false" json:"confirmationEmailSent"`
	ShipmentEmailSent     bool `gorm:"not null;default:false" json:"shipmentEmailSent"`
	// 確認メールを送信中の配信が取る印
	ConfirmationClaimedAt *time.Time `json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// Label は表示用の注文番号（publicRef優先）
func (o Order) Label() string {
	if o.PublicRef != "" {
		return o.PublicRef
	}
	return o.ID
}
