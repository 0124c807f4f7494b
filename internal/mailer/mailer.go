// Package mailer формирует уведомления владельцу магазина и ставит их
// в очередь mail, которую разбирает внешний почтовый воркер.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/pricing"
)

// Queue описывает очередь исходящих писем.
type Queue interface {
	EnqueueMail(ctx context.Context, m model.Mail) error
}

// Notifier ставит в очередь письма о событиях магазина.
// Ошибки постановки в очередь логируются и не прерывают вызывающую операцию.
type Notifier struct {
	queue      Queue
	logger     *zap.Logger
	ownerEmail string
}

// NewNotifier создаёт Notifier для указанного адреса владельца.
func NewNotifier(queue Queue, logger *zap.Logger, ownerEmail string) *Notifier {
	return &Notifier{
		queue:      queue,
		logger:     logger,
		ownerEmail: ownerEmail,
	}
}

// UserCreated ставит в очередь уведомление о регистрации нового покупателя.
func (n *Notifier) UserCreated(ctx context.Context, user *model.User) {
	displayName := user.DisplayName
	if displayName == "" {
		displayName = "Not provided"
	}
	signupTime := time.Now().Format("Jan 2, 2006 3:04 PM")

	mail := model.Mail{
		To:      n.ownerEmail,
		Subject: "New Customer Signup - Lucky Bee Press",
		HTML: fmt.Sprintf(
			`<h2>New Customer Signup!</h2>
<p>A new customer has signed up on Lucky Bee Press.</p>
<table>
<tr><td><b>Email</b></td><td>%s</td></tr>
<tr><td><b>Display Name</b></td><td>%s</td></tr>
<tr><td><b>User ID</b></td><td>%s</td></tr>
<tr><td><b>Signup Time</b></td><td>%s</td></tr>
</table>`,
			user.Email, displayName, user.ID, signupTime,
		),
		Text: fmt.Sprintf(
			"New customer signup!\n\nEmail: %s\nDisplay Name: %s\nUser ID: %s\nSignup Time: %s",
			user.Email, displayName, user.ID, signupTime,
		),
	}

	if err := n.queue.EnqueueMail(ctx, mail); err != nil {
		n.logger.Error("failed to queue new user notification email",
			zap.Error(err), zap.String("email", user.Email))
		return
	}

	n.logger.Info("new user notification email queued", zap.String("email", user.Email))
}

// OrderCreated ставит в очередь уведомление о новом заказе с составом
// и адресом доставки.
func (n *Notifier) OrderCreated(ctx context.Context, order *model.Order) {
	itemsHTML := make([]string, 0, len(order.Items))
	itemsText := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		line := fmt.Sprintf("• %s x%d - %s", item.Name, item.Quantity, pricing.FormatPrice(item.Price))
		itemsHTML = append(itemsHTML, line)
		itemsText = append(itemsText, line)
	}
	if len(itemsHTML) == 0 {
		itemsHTML = append(itemsHTML, "No items")
		itemsText = append(itemsText, "No items")
	}

	addr := order.ShippingAddress
	addressLines := []string{addr.Name, addr.Street1}
	if addr.Street2 != "" {
		addressLines = append(addressLines, addr.Street2)
	}
	addressLines = append(addressLines,
		fmt.Sprintf("%s, %s %s", addr.City, addr.State, addr.PostalCode),
		addr.Country,
	)

	mail := model.Mail{
		To:      n.ownerEmail,
		Subject: fmt.Sprintf("New Order %s - Lucky Bee Press", order.OrderNumber),
		HTML: fmt.Sprintf(
			`<h2>New Order Received!</h2>
<p>A new order has been placed on Lucky Bee Press.</p>
<h3>Order Details</h3>
<table>
<tr><td><b>Order Number</b></td><td>%s</td></tr>
<tr><td><b>Customer</b></td><td>%s</td></tr>
<tr><td><b>Total</b></td><td>%s</td></tr>
</table>
<h3>Items</h3>
<p>%s</p>
<h3>Shipping Address</h3>
<p>%s</p>`,
			order.OrderNumber, order.UserEmail, pricing.FormatPrice(order.Total),
			strings.Join(itemsHTML, "<br>"), strings.Join(addressLines, "<br>"),
		),
		Text: fmt.Sprintf(
			"New order received!\n\nOrder Number: %s\nCustomer: %s\nTotal: %s\n\nItems:\n%s\n\nShipping Address:\n%s",
			order.OrderNumber, order.UserEmail, pricing.FormatPrice(order.Total),
			strings.Join(itemsText, "\n"), strings.Join(addressLines, "\n"),
		),
	}

	if err := n.queue.EnqueueMail(ctx, mail); err != nil {
		n.logger.Error("failed to queue new order notification email",
			zap.Error(err), zap.String("order", order.OrderNumber))
		return
	}

	n.logger.Info("new order notification email queued", zap.String("order", order.OrderNumber))
}
