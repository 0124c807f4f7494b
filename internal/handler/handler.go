// Package handler содержит HTTP-обработчики API сервиса магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/luckybee/storefront-system/internal/catalog"
	"github.com/luckybee/storefront-system/internal/checkout"
	"github.com/luckybee/storefront-system/internal/middleware"
	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/pricing"
	"github.com/luckybee/storefront-system/internal/repository"
	"github.com/luckybee/storefront-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password, displayName, phone string) (string, error)
	AuthenticateUser(ctx context.Context, email, password string) (string, error)

	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)

	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	AddCartItem(ctx context.Context, userID, productID, variantID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error

	PlaceOrder(ctx context.Context, userID string, input service.CheckoutInput) (*model.Order, error)
	GetOrderForUser(ctx context.Context, userID, orderID string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)

	GetDashboard(ctx context.Context) (*service.Dashboard, error)
	ListCustomers(ctx context.Context, status model.AccountStatus) ([]model.User, error)
	ApproveCustomer(ctx context.Context, userID string) error
	SuspendCustomer(ctx context.Context, userID string) error
	ReactivateCustomer(ctx context.Context, userID string) error

	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error
	SetOrderAdminNotes(ctx context.Context, orderID, notes string) error

	CreateProduct(ctx context.Context, input service.ProductInput) (*model.Product, error)
	ArchiveProduct(ctx context.Context, productID string) error
	ActivateProduct(ctx context.Context, productID string) error
}

// Handler реализует HTTP-обработчики API сервиса магазина.
type Handler struct {
	service  Service
	catalog  catalog.Repository
	searcher catalog.Searcher
	logger   *zap.Logger
	auth     *middleware.AuthMiddleware
	pageSize int
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, catalogRepo catalog.Repository, searcher catalog.Searcher, logger *zap.Logger, auth *middleware.AuthMiddleware, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}

	return &Handler{
		service:  s,
		catalog:  catalogRepo,
		searcher: searcher,
		logger:   logger,
		auth:     auth,
		pageSize: pageSize,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Register обрабатывает регистрацию нового покупателя.
// Созданный аккаунт ждёт одобрения администратором.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.DisplayName, req.Phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.auth.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию покупателя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.auth.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type identityResponse struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"accountStatus"`
	Approved bool   `json:"approved"`
	Admin    bool   `json:"admin"`
}

// Me возвращает текущую аутентифицированную личность с производными флагами.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.writeJSON(w, http.StatusOK, identityResponse{
		UserID:   identity.UserID,
		Email:    identity.Email,
		Role:     string(identity.Role),
		Status:   string(identity.Status),
		Approved: identity.Approved,
		Admin:    identity.Admin,
	})
}

type productResponse struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Slug                 string   `json:"slug"`
	Category             string   `json:"category"`
	SKU                  string   `json:"sku"`
	WholesalePrice       int64    `json:"wholesalePrice"`
	WholesaleDisplay     string   `json:"wholesaleDisplay"`
	RetailPrice          int64    `json:"retailPrice"`
	HasBoxOption         bool     `json:"hasBoxOption"`
	BoxWholesalePrice    *int64   `json:"boxWholesalePrice,omitempty"`
	Images               []string `json:"images"`
	Inventory            int      `json:"inventory"`
	MinimumOrderQuantity int      `json:"minimumOrderQuantity"`
	Status               string   `json:"status"`
	Featured             bool     `json:"featured"`
}

func toProductResponse(p model.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}

	return productResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Slug:                 p.Slug,
		Category:             p.Category,
		SKU:                  p.SKU,
		WholesalePrice:       p.WholesalePrice,
		WholesaleDisplay:     pricing.FormatPrice(p.WholesalePrice),
		RetailPrice:          p.RetailPrice,
		HasBoxOption:         p.HasBoxOption,
		BoxWholesalePrice:    p.BoxWholesalePrice,
		Images:               images,
		Inventory:            p.Inventory,
		MinimumOrderQuantity: p.MinimumOrderQuantity,
		Status:               string(p.Status),
		Featured:             p.Featured,
	}
}

type catalogResponse struct {
	Mode       string            `json:"mode"`
	Products   []productResponse `json:"products"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
	Page       int               `json:"page"`
	Query      string            `json:"query"`
}

// ListProducts возвращает страницу каталога либо результаты поиска.
// Состояние витрины читается из параметров URL (q, category, page, sort);
// канонический вид параметров возвращается в поле query.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	state := catalog.StateFromQuery(r.URL.Query())
	browser := catalog.NewBrowser(h.catalog, h.searcher, h.logger, h.pageSize, state)

	var (
		page catalog.Page
		err  error
	)
	// Без настроенного поискового сервиса запрос с q обслуживается как обычный
	// просмотр каталога.
	if state.SearchMode() && h.searcher != nil {
		page, err = browser.Search(r.Context())
	} else {
		page, err = browser.Browse(r.Context())
	}
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	products := make([]productResponse, 0, len(page.Products))
	for _, p := range page.Products {
		products = append(products, toProductResponse(p))
	}

	h.writeJSON(w, http.StatusOK, catalogResponse{
		Mode:       string(page.Mode),
		Products:   products,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Page:       page.PageNumber,
		Query:      state.Values().Encode(),
	})
}

// ListCategories возвращает категории фильтра каталога: "All" плюс категории
// активных товаров.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	browser := catalog.NewBrowser(h.catalog, h.searcher, h.logger, h.pageSize, catalog.DefaultState())

	categories, err := browser.Categories(r.Context())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

// GetProduct возвращает активный товар по slug.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := h.service.GetProductBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get product error", zap.Error(err), zap.String("slug", slug))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if product.Status != model.ProductStatusActive {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(*product))
}

type cartItemResponse struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type cartResponse struct {
	Items     []cartItemResponse `json:"items"`
	Subtotal  int64              `json:"subtotal"`
	Discount  int64              `json:"discount"`
	ItemCount int                `json:"itemCount"`
}

// GetCart возвращает корзину текущего пользователя.
// Отсутствующая корзина отдаётся как пустая.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	cart, err := h.service.GetCart(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			h.writeJSON(w, http.StatusOK, cartResponse{Items: []cartItemResponse{}})
			return
		}
		h.logger.Error("get cart error", zap.Error(err), zap.String("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	h.writeJSON(w, http.StatusOK, cartResponse{
		Items:     items,
		Subtotal:  cart.Subtotal,
		Discount:  cart.Discount,
		ItemCount: cart.ItemCount,
	})
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// AddCartItem добавляет товар в корзину текущего пользователя.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.ProductID == "" || req.Quantity <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.AddCartItem(r.Context(), identity.UserID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrProductUnavailable):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, service.ErrBelowMinimumQuantity):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("add cart item error", zap.Error(err), zap.String("userID", identity.UserID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveCartItem удаляет товар из корзины текущего пользователя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := chi.URLParam(r, "productID")

	if err := h.service.RemoveCartItem(r.Context(), identity.UserID, productID); err != nil {
		h.logger.Error("remove cart item error", zap.Error(err), zap.String("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type checkoutRequest struct {
	ShippingAddress model.OrderAddress `json:"shippingAddress"`
	BillingAddress  model.OrderAddress `json:"billingAddress"`
	SameAsShipping  bool               `json:"sameAsShipping"`
	Notes           string             `json:"notes,omitempty"`
}

type orderResponse struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"orderNumber"`
	UserEmail       string             `json:"userEmail"`
	Status          string             `json:"status"`
	PaymentStatus   string             `json:"paymentStatus"`
	Items           []orderItemJSON    `json:"items"`
	ShippingAddress model.OrderAddress `json:"shippingAddress"`
	BillingAddress  model.OrderAddress `json:"billingAddress"`
	Subtotal        int64              `json:"subtotal"`
	ShippingCost    int64              `json:"shippingCost"`
	Tax             int64              `json:"tax"`
	Discount        int64              `json:"discount"`
	Total           int64              `json:"total"`
	TotalDisplay    string             `json:"totalDisplay"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       string             `json:"createdAt"`
}

type orderItemJSON struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Total     int64  `json:"total"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemJSON, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemJSON{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Total:     item.Total,
		})
	}

	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserEmail:       o.UserEmail,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Tax:             o.Tax,
		Discount:        o.Discount,
		Total:           o.Total,
		TotalDisplay:    pricing.FormatPrice(o.Total),
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

// Checkout оформляет заказ из корзины текущего пользователя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !req.ShippingAddress.IsComplete() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if !req.SameAsShipping && !req.BillingAddress.IsComplete() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), identity.UserID, service.CheckoutInput{
		Shipping:       req.ShippingAddress,
		Billing:        req.BillingAddress,
		SameAsShipping: req.SameAsShipping,
		Notes:          req.Notes,
	})
	if err != nil {
		if errors.Is(err, checkout.ErrNotReady) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("place order error", zap.Error(err), zap.String("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrders возвращает список заказов текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.ListOrdersByUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.String("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ текущего пользователя по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrderForUser(r.Context(), identity.UserID, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.String("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}
