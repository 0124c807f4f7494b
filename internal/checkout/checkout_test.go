package checkout

import (
	"errors"
	"testing"

	"github.com/luckybee/storefront-system/internal/model"
)

func testAddress(name string) model.OrderAddress {
	return model.OrderAddress{
		Name:       name,
		Street1:    "12 Main St",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func testCart() *model.Cart {
	return &model.Cart{
		UserID: "user-1",
		Items: []model.CartItem{
			{ProductID: "prod-1", Name: "Birthday Card", Price: 350, Quantity: 2},
			{ProductID: "prod-2", Name: "Thank You Card", Price: 500, Quantity: 1},
		},
		Subtotal:  1200,
		Discount:  0,
		ItemCount: 3,
	}
}

func TestMachine_SameAsShippingSkipsBilling(t *testing.T) {
	m := NewMachine("user-1", "buyer@example.com", testCart())

	if m.Step() != StepShipping {
		t.Fatalf("step = %q, want %q", m.Step(), StepShipping)
	}

	addr := testAddress("Buyer")
	if err := m.SubmitShipping(addr); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	if m.Step() != StepReview {
		t.Fatalf("step = %q, want %q", m.Step(), StepReview)
	}
	if m.BillingAddress() == nil || *m.BillingAddress() != addr {
		t.Fatalf("billing address = %+v, want copy of shipping", m.BillingAddress())
	}
}

func TestMachine_SeparateBillingStep(t *testing.T) {
	m := NewMachine("user-1", "buyer@example.com", testCart())
	m.SetSameAsShipping(false)

	if err := m.SubmitShipping(testAddress("Buyer")); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	if m.Step() != StepBilling {
		t.Fatalf("step = %q, want %q", m.Step(), StepBilling)
	}

	billing := testAddress("Company LLC")
	if err := m.SubmitBilling(billing); err != nil {
		t.Fatalf("submit billing: %v", err)
	}
	if m.Step() != StepReview {
		t.Fatalf("step = %q, want %q", m.Step(), StepReview)
	}
	if *m.BillingAddress() != billing {
		t.Fatalf("billing address = %+v, want %+v", m.BillingAddress(), billing)
	}
}

func TestMachine_BackAndEditShipping(t *testing.T) {
	m := NewMachine("user-1", "buyer@example.com", testCart())
	m.SetSameAsShipping(false)

	if err := m.Back(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("Back on shipping step: err = %v, want ErrWrongStep", err)
	}

	if err := m.SubmitShipping(testAddress("Buyer")); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	if err := m.Back(); err != nil {
		t.Fatalf("back: %v", err)
	}
	if m.Step() != StepShipping {
		t.Fatalf("step = %q, want %q", m.Step(), StepShipping)
	}

	m.SetSameAsShipping(true)
	if err := m.SubmitShipping(testAddress("Buyer")); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	if err := m.EditShipping(); err != nil {
		t.Fatalf("edit shipping: %v", err)
	}
	if m.Step() != StepShipping {
		t.Fatalf("step = %q, want %q", m.Step(), StepShipping)
	}
}

func TestMachine_SubmitBillingWrongStep(t *testing.T) {
	m := NewMachine("user-1", "buyer@example.com", testCart())

	if err := m.SubmitBilling(testAddress("Buyer")); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("err = %v, want ErrWrongStep", err)
	}
}

func TestBuildOrder_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func() *Machine
	}{
		{
			name: "no user",
			setup: func() *Machine {
				m := NewMachine("", "buyer@example.com", testCart())
				m.SubmitShipping(testAddress("Buyer"))
				return m
			},
		},
		{
			name: "nil cart",
			setup: func() *Machine {
				m := NewMachine("user-1", "buyer@example.com", nil)
				m.SubmitShipping(testAddress("Buyer"))
				return m
			},
		},
		{
			name: "empty cart",
			setup: func() *Machine {
				m := NewMachine("user-1", "buyer@example.com", &model.Cart{UserID: "user-1"})
				m.SubmitShipping(testAddress("Buyer"))
				return m
			},
		},
		{
			name: "no addresses",
			setup: func() *Machine {
				return NewMachine("user-1", "buyer@example.com", testCart())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup().BuildOrder()
			if !errors.Is(err, ErrNotReady) {
				t.Fatalf("err = %v, want ErrNotReady", err)
			}
		})
	}
}

func TestBuildOrder_Totals(t *testing.T) {
	cart := testCart()
	cart.Discount = 200

	m := NewMachine("user-1", "buyer@example.com", cart)
	m.SetNotes("leave at the door")
	if err := m.SubmitShipping(testAddress("Buyer")); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	order, err := m.BuildOrder()
	if err != nil {
		t.Fatalf("build order: %v", err)
	}

	if order.Subtotal != 1200 {
		t.Fatalf("subtotal = %d, want 1200", order.Subtotal)
	}
	if order.Discount != 200 {
		t.Fatalf("discount = %d, want 200", order.Discount)
	}
	if order.ShippingCost != 0 || order.Tax != 0 {
		t.Fatalf("shipping = %d, tax = %d, want 0 and 0", order.ShippingCost, order.Tax)
	}
	if order.Total != 1000 {
		t.Fatalf("total = %d, want 1000", order.Total)
	}
	if got := order.Subtotal + order.ShippingCost + order.Tax - order.Discount; got != order.Total {
		t.Fatalf("total invariant broken: %d != %d", got, order.Total)
	}

	if order.Status != model.OrderStatusPending {
		t.Fatalf("status = %q, want pending", order.Status)
	}
	if order.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("payment status = %q, want pending", order.PaymentStatus)
	}
	if order.Notes != "leave at the door" {
		t.Fatalf("notes = %q", order.Notes)
	}
	if order.UserEmail != "buyer@example.com" {
		t.Fatalf("user email = %q", order.UserEmail)
	}
}

func TestBuildOrder_ItemsAreSnapshots(t *testing.T) {
	cart := testCart()
	m := NewMachine("user-1", "buyer@example.com", cart)
	if err := m.SubmitShipping(testAddress("Buyer")); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	order, err := m.BuildOrder()
	if err != nil {
		t.Fatalf("build order: %v", err)
	}

	if len(order.Items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(order.Items))
	}
	if order.Items[0].Total != 700 {
		t.Fatalf("item total = %d, want 700", order.Items[0].Total)
	}

	cart.Items[0].Price = 999
	if order.Items[0].Price != 350 {
		t.Fatalf("order item price changed with cart, want snapshot")
	}
}
