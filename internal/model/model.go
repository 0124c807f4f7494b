// Package model содержит доменные сущности оптового магазина.
package model

import (
	"slices"
	"time"
)

// Role определяет роль пользователя в системе.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// AccountStatus описывает статус аккаунта покупателя.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// User представляет зарегистрированного покупателя или администратора.
// Новые аккаунты создаются со статусом pending и ждут одобрения администратором.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	PasswordHash  []byte
	Role          Role
	AccountStatus AccountStatus
	Phone         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductStatus описывает статус товара в каталоге.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// Categories — фиксированный набор категорий товаров.
var Categories = []string{
	"Birthday",
	"Thank You",
	"Holiday",
	"Christmas",
	"Hanukkah",
	"Season's Greetings",
	"New Year's",
	"Valentine's Day",
	"Love",
	"Sympathy",
	"Congratulations",
	"Baby",
	"Wedding",
	"Graduation",
	"Mother's Day",
	"Father's Day",
	"Rosh Hashanah",
	"Easter",
	"Everyday",
	"Blank",
	"Other",
}

// BoxSetCategories — категории, для которых допускаются коробочные наборы.
var BoxSetCategories = []string{
	"Holiday",
	"Christmas",
	"Hanukkah",
	"Season's Greetings",
	"Thank You",
	"Everyday",
	"Blank",
}

// IsValidCategory проверяет, входит ли категория в фиксированный набор.
func IsValidCategory(category string) bool {
	return slices.Contains(Categories, category)
}

// CategoryAllowsBoxSet сообщает, допустим ли коробочный набор для категории.
func CategoryAllowsBoxSet(category string) bool {
	return slices.Contains(BoxSetCategories, category)
}

// Product описывает товар каталога. Все цены хранятся в центах.
type Product struct {
	ID               string
	Name             string
	Slug             string
	Description      string
	ShortDescription string
	Category         string
	SKU              string

	WholesalePrice int64
	RetailPrice    int64
	CostPerItem    *int64

	HasBoxOption      bool
	BoxWholesalePrice *int64
	BoxRetailPrice    *int64

	Inventory            int
	LowStockThreshold    int
	MinimumOrderQuantity int
	WeightOz             *float64

	Status   ProductStatus
	Featured bool
	Tags     []string
	Images   []string

	SalesCount int64
	ViewCount  int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem описывает одну позицию корзины.
type CartItem struct {
	ProductID string
	VariantID string
	Name      string
	Image     string
	Price     int64
	Quantity  int
}

// Cart — корзина покупателя, одна на пользователя.
type Cart struct {
	UserID    string
	Items     []CartItem
	Subtotal  int64
	Discount  int64
	ItemCount int
	UpdatedAt time.Time
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// OrderStatuses перечисляет все допустимые статусы заказа.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// IsValidOrderStatus проверяет корректность статуса заказа.
func IsValidOrderStatus(s OrderStatus) bool {
	return slices.Contains(OrderStatuses, s)
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentStatuses перечисляет все допустимые статусы оплаты.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
	PaymentStatusPartiallyRefunded,
}

// IsValidPaymentStatus проверяет корректность статуса оплаты.
func IsValidPaymentStatus(s PaymentStatus) bool {
	return slices.Contains(PaymentStatuses, s)
}

// OrderAddress — адрес доставки или оплаты, встроенный в заказ.
type OrderAddress struct {
	Name       string `json:"name"`
	Company    string `json:"company,omitempty"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// IsComplete проверяет, заполнены ли обязательные поля адреса.
func (a OrderAddress) IsComplete() bool {
	return a.Name != "" && a.Street1 != "" && a.City != "" &&
		a.State != "" && a.PostalCode != "" && a.Country != ""
}

// OrderItem — снимок позиции корзины на момент оформления заказа.
// После создания заказа позиции не ссылаются на живые данные товара.
type OrderItem struct {
	ProductID string
	VariantID string
	Name      string
	SKU       string
	Image     string
	Price     int64
	Quantity  int
	Total     int64
}

// Order описывает размещённый заказ. Все суммы хранятся в центах.
// Инвариант: Total == Subtotal + ShippingCost + Tax - Discount.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	UserEmail   string

	Status        OrderStatus
	PaymentStatus PaymentStatus

	Items           []OrderItem
	ShippingAddress OrderAddress
	BillingAddress  OrderAddress

	Subtotal     int64
	ShippingCost int64
	Tax          int64
	Discount     int64
	Total        int64

	PaymentMethod   string
	PaymentIntentID *string

	Notes      string
	AdminNotes string

	PaidAt      *time.Time
	CancelledAt *time.Time
	RefundedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Mail — письмо в очереди на отправку внешним почтовым воркером.
type Mail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}
