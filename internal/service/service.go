// Package service реализует бизнес-логику сервиса магазина.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/luckybee/storefront-system/internal/checkout"
	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/pricing"
	"github.com/luckybee/storefront-system/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidCategory возвращается при неизвестной категории товара.
var ErrInvalidCategory = errors.New("unknown product category")

// ErrInvalidStatus возвращается при попытке перевести заказ в неизвестный
// статус заказа или оплаты.
var ErrInvalidStatus = errors.New("invalid status")

// ErrBelowMinimumQuantity возвращается, если количество меньше минимального
// оптового заказа для товара.
var ErrBelowMinimumQuantity = errors.New("quantity below minimum order quantity")

// ErrProductUnavailable возвращается при попытке положить в корзину
// неактивный товар.
var ErrProductUnavailable = errors.New("product is not available")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, status model.AccountStatus) ([]model.User, error)
	UpdateUserStatus(ctx context.Context, id string, status model.AccountStatus) error

	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProductStatus(ctx context.Context, id string, status model.ProductStatus) error

	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	UpsertCartItem(ctx context.Context, userID string, item model.CartItem) error
	RemoveCartItem(ctx context.Context, userID, productID string) error

	CountUsers(ctx context.Context, status model.AccountStatus) (int, error)
	ListRecentUsers(ctx context.Context, status model.AccountStatus, limit int) ([]model.User, error)
	CountProducts(ctx context.Context, filter repository.ProductFilter) (int, error)
	CountOrders(ctx context.Context, status model.OrderStatus) (int, error)
	ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error)

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	SetAdminNotes(ctx context.Context, id, notes string) error
}

// Notifier описывает уведомления о событиях магазина.
type Notifier interface {
	UserCreated(ctx context.Context, user *model.User)
	OrderCreated(ctx context.Context, order *model.Order)
}

// Service содержит бизнес-логику сервиса магазина.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService создаёт новый сервис с указанным репозиторием и уведомителем.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового покупателя. Аккаунт создаётся со статусом
// pending и не имеет доступа к каталогу до одобрения администратором.
func (s *Service) RegisterUser(ctx context.Context, email, password, displayName, phone string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user := &model.User{
		ID:            pricing.GenerateUserID(),
		Email:         email,
		DisplayName:   displayName,
		PasswordHash:  hashPassword(email, password),
		Role:          model.RoleCustomer,
		AccountStatus: model.AccountStatusPending,
		Phone:         phone,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return "", err
	}

	s.notifier.UserCreated(ctx, user)

	return user.ID, nil
}

// AuthenticateUser проверяет email и пароль и возвращает идентификатор пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	hashed := hashPassword(email, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return "", ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetUser(ctx, id)
}

// GetProductBySlug возвращает товар по slug.
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	return s.repo.GetCart(ctx, userID)
}

// VariantBox — вариант позиции "коробочный набор".
const VariantBox = "box"

// AddCartItem добавляет товар в корзину пользователя по оптовой цене.
// Вариант "box" использует цену коробочного набора, если он доступен
// для товара. Количество не может быть ниже минимального оптового заказа.
func (s *Service) AddCartItem(ctx context.Context, userID, productID, variantID string, quantity int) error {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	if product.Status != model.ProductStatusActive {
		return ErrProductUnavailable
	}
	if quantity < product.MinimumOrderQuantity {
		return fmt.Errorf("%w: minimum is %d", ErrBelowMinimumQuantity, product.MinimumOrderQuantity)
	}

	price := product.WholesalePrice
	if variantID == VariantBox {
		if !product.HasBoxOption || product.BoxWholesalePrice == nil {
			return fmt.Errorf("%w: no box option", ErrProductUnavailable)
		}
		price = *product.BoxWholesalePrice
	}

	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}

	return s.repo.UpsertCartItem(ctx, userID, model.CartItem{
		ProductID: product.ID,
		VariantID: variantID,
		Name:      product.Name,
		Image:     image,
		Price:     price,
		Quantity:  quantity,
	})
}

// RemoveCartItem удаляет товар из корзины пользователя.
func (s *Service) RemoveCartItem(ctx context.Context, userID, productID string) error {
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// CheckoutInput — данные оформления заказа от покупателя.
type CheckoutInput struct {
	Shipping       model.OrderAddress
	Billing        model.OrderAddress
	SameAsShipping bool
	Notes          string
}

// PlaceOrder оформляет заказ: прогоняет автомат оформления, записывает заказ
// и очищает корзину одной транзакцией, затем ставит уведомление в очередь.
func (s *Service) PlaceOrder(ctx context.Context, userID string, input CheckoutInput) (*model.Order, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, checkout.ErrNotReady
		}
		return nil, err
	}

	machine := checkout.NewMachine(user.ID, user.Email, cart)
	machine.SetSameAsShipping(input.SameAsShipping)
	machine.SetNotes(input.Notes)

	if err := machine.SubmitShipping(input.Shipping); err != nil {
		return nil, err
	}
	if !input.SameAsShipping {
		if err := machine.SubmitBilling(input.Billing); err != nil {
			return nil, err
		}
	}

	order, err := machine.BuildOrder()
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.notifier.OrderCreated(ctx, order)

	return order, nil
}

// GetOrderForUser возвращает заказ, если он принадлежит пользователю.
func (s *Service) GetOrderForUser(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByUser возвращает заказы пользователя.
func (s *Service) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// ListCustomers возвращает покупателей с фильтром по статусу аккаунта.
func (s *Service) ListCustomers(ctx context.Context, status model.AccountStatus) ([]model.User, error) {
	return s.repo.ListUsers(ctx, status)
}

// ApproveCustomer одобряет покупателя: pending -> active.
func (s *Service) ApproveCustomer(ctx context.Context, userID string) error {
	return s.repo.UpdateUserStatus(ctx, userID, model.AccountStatusActive)
}

// SuspendCustomer блокирует покупателя.
func (s *Service) SuspendCustomer(ctx context.Context, userID string) error {
	return s.repo.UpdateUserStatus(ctx, userID, model.AccountStatusSuspended)
}

// ReactivateCustomer возвращает заблокированного покупателя в активные.
func (s *Service) ReactivateCustomer(ctx context.Context, userID string) error {
	return s.repo.UpdateUserStatus(ctx, userID, model.AccountStatusActive)
}

// Сколько последних заказов и ожидающих покупателей показывается на панели.
const dashboardPreviewLimit = 5

// Dashboard содержит сводку магазина для панели администратора.
type Dashboard struct {
	TotalOrders      int
	PendingOrders    int
	TotalCustomers   int
	PendingCustomers int
	TotalProducts    int
	RecentOrders     []model.Order
	PendingPreview   []model.User
}

// GetDashboard собирает счётчики заказов, покупателей и товаров вместе
// с последними заказами и ожидающими одобрения покупателями.
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	var err error

	if d.TotalOrders, err = s.repo.CountOrders(ctx, ""); err != nil {
		return nil, err
	}
	if d.PendingOrders, err = s.repo.CountOrders(ctx, model.OrderStatusPending); err != nil {
		return nil, err
	}
	if d.TotalCustomers, err = s.repo.CountUsers(ctx, ""); err != nil {
		return nil, err
	}
	if d.PendingCustomers, err = s.repo.CountUsers(ctx, model.AccountStatusPending); err != nil {
		return nil, err
	}
	if d.TotalProducts, err = s.repo.CountProducts(ctx, repository.ProductFilter{}); err != nil {
		return nil, err
	}
	if d.RecentOrders, err = s.repo.ListRecentOrders(ctx, dashboardPreviewLimit); err != nil {
		return nil, err
	}
	if d.PendingPreview, err = s.repo.ListRecentUsers(ctx, model.AccountStatusPending, dashboardPreviewLimit); err != nil {
		return nil, err
	}

	return d, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders возвращает заказы с фильтром по статусу.
func (s *Service) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, status)
}

// UpdateOrderStatus меняет статус заказа.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !model.IsValidOrderStatus(status) {
		return fmt.Errorf("%w: order status %s", ErrInvalidStatus, status)
	}
	return s.repo.UpdateOrderStatus(ctx, orderID, status)
}

// UpdatePaymentStatus меняет статус оплаты заказа.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error {
	if !model.IsValidPaymentStatus(status) {
		return fmt.Errorf("%w: payment status %s", ErrInvalidStatus, status)
	}
	return s.repo.UpdatePaymentStatus(ctx, orderID, status)
}

// SetOrderAdminNotes сохраняет внутренние заметки администратора по заказу.
func (s *Service) SetOrderAdminNotes(ctx context.Context, orderID, notes string) error {
	return s.repo.SetAdminNotes(ctx, orderID, notes)
}

// ProductInput — данные формы создания товара. Цены указываются в долларах.
type ProductInput struct {
	Name                 string
	Description          string
	ShortDescription     string
	Category             string
	SKU                  string
	WholesalePrice       float64
	RetailPrice          float64
	CostPerItem          float64
	HasBoxOption         bool
	BoxWholesalePrice    float64
	BoxRetailPrice       float64
	Inventory            int
	LowStockThreshold    int
	MinimumOrderQuantity int
	WeightOz             float64
	Status               model.ProductStatus
	Featured             bool
	Tags                 []string
	Images               []string
}

// CreateProduct создаёт товар каталога. Slug выводится из названия, артикул
// генерируется из категории, если не задан. Цены коробочного набора
// сохраняются только когда набор включён и категория его допускает.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	if !model.IsValidCategory(input.Category) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, input.Category)
	}

	sku := input.SKU
	if sku == "" {
		sku = pricing.GenerateSKU(input.Category)
	}

	status := input.Status
	if status == "" {
		status = model.ProductStatusDraft
	}

	wholesalePrice := input.WholesalePrice
	if wholesalePrice <= 0 {
		wholesalePrice = 3
	}
	retailPrice := input.RetailPrice
	if retailPrice <= 0 {
		retailPrice = 6
	}

	minimumOrderQuantity := input.MinimumOrderQuantity
	if minimumOrderQuantity <= 0 {
		minimumOrderQuantity = 6
	}

	product := &model.Product{
		ID:                   pricing.GenerateProductID(),
		Name:                 input.Name,
		Slug:                 pricing.GenerateSlug(input.Name),
		Description:          input.Description,
		ShortDescription:     input.ShortDescription,
		Category:             input.Category,
		SKU:                  sku,
		WholesalePrice:       pricing.ToCents(wholesalePrice),
		RetailPrice:          pricing.ToCents(retailPrice),
		Inventory:            input.Inventory,
		LowStockThreshold:    input.LowStockThreshold,
		MinimumOrderQuantity: minimumOrderQuantity,
		Status:               status,
		Featured:             input.Featured,
		Tags:                 input.Tags,
		Images:               input.Images,
	}

	if input.CostPerItem > 0 {
		cost := pricing.ToCents(input.CostPerItem)
		product.CostPerItem = &cost
	}
	if input.WeightOz > 0 {
		weight := input.WeightOz
		product.WeightOz = &weight
	}

	if input.HasBoxOption && model.CategoryAllowsBoxSet(input.Category) {
		product.HasBoxOption = true

		boxWholesale := input.BoxWholesalePrice
		if boxWholesale <= 0 {
			boxWholesale = 11
		}
		boxRetail := input.BoxRetailPrice
		if boxRetail <= 0 {
			boxRetail = 22
		}

		bw := pricing.ToCents(boxWholesale)
		br := pricing.ToCents(boxRetail)
		product.BoxWholesalePrice = &bw
		product.BoxRetailPrice = &br
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// ArchiveProduct убирает товар из каталога: active -> archived.
func (s *Service) ArchiveProduct(ctx context.Context, productID string) error {
	return s.repo.UpdateProductStatus(ctx, productID, model.ProductStatusArchived)
}

// ActivateProduct публикует товар в каталоге.
func (s *Service) ActivateProduct(ctx context.Context, productID string) error {
	return s.repo.UpdateProductStatus(ctx, productID, model.ProductStatusActive)
}
