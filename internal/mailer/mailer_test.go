package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/luckybee/storefront-system/internal/model"
)

type stubQueue struct {
	mails []model.Mail
	err   error
}

func (s *stubQueue) EnqueueMail(ctx context.Context, m model.Mail) error {
	if s.err != nil {
		return s.err
	}
	s.mails = append(s.mails, m)
	return nil
}

func TestUserCreated(t *testing.T) {
	queue := &stubQueue{}
	n := NewNotifier(queue, zap.NewNop(), "orders@luckybeepress.com")

	n.UserCreated(context.Background(), &model.User{
		ID:          "user-1",
		Email:       "buyer@example.com",
		DisplayName: "Buyer",
	})

	if len(queue.mails) != 1 {
		t.Fatalf("queued mails = %d, want 1", len(queue.mails))
	}

	mail := queue.mails[0]
	if mail.To != "orders@luckybeepress.com" {
		t.Fatalf("to = %q, want owner email", mail.To)
	}
	if mail.Subject != "New Customer Signup - Lucky Bee Press" {
		t.Fatalf("subject = %q", mail.Subject)
	}
	if !strings.Contains(mail.HTML, "buyer@example.com") || !strings.Contains(mail.Text, "buyer@example.com") {
		t.Fatalf("mail bodies must mention the customer email")
	}
}

func TestUserCreated_EmptyDisplayName(t *testing.T) {
	queue := &stubQueue{}
	n := NewNotifier(queue, zap.NewNop(), "orders@luckybeepress.com")

	n.UserCreated(context.Background(), &model.User{
		ID:    "user-1",
		Email: "buyer@example.com",
	})

	if !strings.Contains(queue.mails[0].Text, "Display Name: Not provided") {
		t.Fatalf("missing display name placeholder: %q", queue.mails[0].Text)
	}
}

func TestOrderCreated(t *testing.T) {
	queue := &stubQueue{}
	n := NewNotifier(queue, zap.NewNop(), "orders@luckybeepress.com")

	n.OrderCreated(context.Background(), &model.Order{
		OrderNumber: "LBP-849301-27",
		UserEmail:   "buyer@example.com",
		Total:       2100,
		Items: []model.OrderItem{
			{Name: "Birthday Card", Quantity: 6, Price: 350},
		},
		ShippingAddress: model.OrderAddress{
			Name:       "Buyer",
			Street1:    "12 Main St",
			City:       "Portland",
			State:      "OR",
			PostalCode: "97201",
			Country:    "US",
		},
	})

	if len(queue.mails) != 1 {
		t.Fatalf("queued mails = %d, want 1", len(queue.mails))
	}

	mail := queue.mails[0]
	if mail.Subject != "New Order LBP-849301-27 - Lucky Bee Press" {
		t.Fatalf("subject = %q", mail.Subject)
	}
	if !strings.Contains(mail.Text, "Birthday Card x6 - $3.50") {
		t.Fatalf("items line missing: %q", mail.Text)
	}
	if !strings.Contains(mail.Text, "Portland, OR 97201") {
		t.Fatalf("address line missing: %q", mail.Text)
	}
	if !strings.Contains(mail.Text, "Total: $21.00") {
		t.Fatalf("total missing: %q", mail.Text)
	}
}

func TestNotifier_QueueErrorIsSwallowed(t *testing.T) {
	queue := &stubQueue{err: errors.New("insert failed")}
	n := NewNotifier(queue, zap.NewNop(), "orders@luckybeepress.com")

	// Ошибка очереди не должна приводить к панике или влиять на вызывающего.
	n.UserCreated(context.Background(), &model.User{ID: "user-1", Email: "buyer@example.com"})
	n.OrderCreated(context.Background(), &model.Order{OrderNumber: "LBP-000001-01"})
}
