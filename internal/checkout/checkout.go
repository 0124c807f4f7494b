// Package checkout реализует линейный процесс оформления заказа:
// адрес доставки -> адрес оплаты -> подтверждение.
package checkout

import (
	"errors"

	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/pricing"
)

// Step — шаг процесса оформления заказа.
type Step string

const (
	StepShipping Step = "shipping"
	StepBilling  Step = "billing"
	StepReview   Step = "review"
)

// ErrNotReady возвращается при попытке собрать заказ без выполненных
// предусловий: аутентификации, непустой корзины и обоих адресов.
var ErrNotReady = errors.New("checkout is not ready to place an order")

// ErrWrongStep возвращается при действии, недопустимом на текущем шаге.
var ErrWrongStep = errors.New("action not allowed at this step")

// Machine — конечный автомат оформления заказа для одного пользователя.
// Переходы: shipping -> billing -> review, либо shipping -> review напрямую,
// если адрес оплаты совпадает с адресом доставки.
type Machine struct {
	userID    string
	userEmail string
	cart      *model.Cart

	step           Step
	shipping       *model.OrderAddress
	billing        *model.OrderAddress
	sameAsShipping bool
	notes          string
}

// NewMachine создаёт автомат оформления заказа на шаге shipping.
// По умолчанию адрес оплаты считается совпадающим с адресом доставки.
func NewMachine(userID, userEmail string, cart *model.Cart) *Machine {
	return &Machine{
		userID:         userID,
		userEmail:      userEmail,
		cart:           cart,
		step:           StepShipping,
		sameAsShipping: true,
	}
}

// Step возвращает текущий шаг.
func (m *Machine) Step() Step {
	return m.step
}

// SetSameAsShipping задаёт флаг "адрес оплаты совпадает с адресом доставки".
func (m *Machine) SetSameAsShipping(same bool) {
	m.sameAsShipping = same
}

// SetNotes сохраняет комментарий покупателя к заказу.
func (m *Machine) SetNotes(notes string) {
	m.notes = notes
}

// SubmitShipping сохраняет адрес доставки. При включённом флаге совпадения
// адрес копируется в адрес оплаты и автомат переходит сразу к подтверждению,
// иначе — к вводу адреса оплаты.
func (m *Machine) SubmitShipping(addr model.OrderAddress) error {
	if m.step == StepBilling {
		return ErrWrongStep
	}

	m.shipping = &addr
	if m.sameAsShipping {
		billing := addr
		m.billing = &billing
		m.step = StepReview
	} else {
		m.step = StepBilling
	}

	return nil
}

// SubmitBilling сохраняет адрес оплаты и переходит к подтверждению.
func (m *Machine) SubmitBilling(addr model.OrderAddress) error {
	if m.step != StepBilling {
		return ErrWrongStep
	}

	m.billing = &addr
	m.step = StepReview

	return nil
}

// Back возвращает автомат с шага billing на шаг shipping.
func (m *Machine) Back() error {
	if m.step != StepBilling {
		return ErrWrongStep
	}

	m.step = StepShipping
	return nil
}

// EditShipping возвращает автомат с подтверждения к правке адреса доставки.
func (m *Machine) EditShipping() error {
	if m.step != StepReview {
		return ErrWrongStep
	}

	m.step = StepShipping
	return nil
}

// BuildOrder собирает заказ из накопленного состояния.
//
// Предусловия: известный пользователь, непустая корзина и оба адреса;
// иначе возвращается ErrNotReady и состояние автомата не меняется.
// Позиции копируются из корзины как снимок. Стоимость доставки и налог
// пока не считаются и равны нулю; итог удовлетворяет инварианту
// Total == Subtotal + ShippingCost + Tax - Discount.
func (m *Machine) BuildOrder() (*model.Order, error) {
	if m.userID == "" || m.cart == nil || len(m.cart.Items) == 0 ||
		m.shipping == nil || m.billing == nil {
		return nil, ErrNotReady
	}

	items := make([]model.OrderItem, 0, len(m.cart.Items))
	for _, item := range m.cart.Items {
		items = append(items, model.OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Total:     item.Price * int64(item.Quantity),
		})
	}

	subtotal := m.cart.Subtotal
	var shippingCost int64 = 0
	var tax int64 = 0
	discount := m.cart.Discount
	total := subtotal + shippingCost + tax - discount

	return &model.Order{
		ID:              pricing.GenerateOrderID(m.userID),
		OrderNumber:     pricing.GenerateOrderNumber(),
		UserID:          m.userID,
		UserEmail:       m.userEmail,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		Items:           items,
		ShippingAddress: *m.shipping,
		BillingAddress:  *m.billing,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		Tax:             tax,
		Discount:        discount,
		Total:           total,
		PaymentMethod:   "card",
		Notes:           m.notes,
	}, nil
}

// ShippingAddress возвращает сохранённый адрес доставки.
func (m *Machine) ShippingAddress() *model.OrderAddress {
	return m.shipping
}

// BillingAddress возвращает сохранённый адрес оплаты.
func (m *Machine) BillingAddress() *model.OrderAddress {
	return m.billing
}
