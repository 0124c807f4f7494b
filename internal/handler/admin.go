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
	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/repository"
	"github.com/luckybee/storefront-system/internal/service"
)

type customerResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	Phone         string `json:"phone,omitempty"`
	AccountStatus string `json:"accountStatus"`
	CreatedAt     string `json:"createdAt"`
}

func toCustomerResponse(u model.User) customerResponse {
	return customerResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Phone:         u.Phone,
		AccountStatus: string(u.AccountStatus),
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

type dashboardResponse struct {
	TotalOrders      int                `json:"totalOrders"`
	PendingOrders    int                `json:"pendingOrders"`
	TotalCustomers   int                `json:"totalCustomers"`
	PendingCustomers int                `json:"pendingCustomers"`
	TotalProducts    int                `json:"totalProducts"`
	RecentOrders     []orderResponse    `json:"recentOrders"`
	PendingPreview   []customerResponse `json:"pendingPreview"`
}

// Dashboard возвращает сводку магазина: счётчики заказов, покупателей
// и товаров, последние заказы и покупателей, ожидающих одобрения.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetDashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := dashboardResponse{
		TotalOrders:      d.TotalOrders,
		PendingOrders:    d.PendingOrders,
		TotalCustomers:   d.TotalCustomers,
		PendingCustomers: d.PendingCustomers,
		TotalProducts:    d.TotalProducts,
		RecentOrders:     make([]orderResponse, 0, len(d.RecentOrders)),
		PendingPreview:   make([]customerResponse, 0, len(d.PendingPreview)),
	}
	for i := range d.RecentOrders {
		resp.RecentOrders = append(resp.RecentOrders, toOrderResponse(&d.RecentOrders[i]))
	}
	for _, u := range d.PendingPreview {
		resp.PendingPreview = append(resp.PendingPreview, toCustomerResponse(u))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ListCustomers возвращает покупателей, опционально отфильтрованных
// по статусу аккаунта через параметр status.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	status := model.AccountStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.AccountStatusPending &&
		status != model.AccountStatusActive && status != model.AccountStatusSuspended {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	users, err := h.service.ListCustomers(r.Context(), status)
	if err != nil {
		h.logger.Error("list customers error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]customerResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toCustomerResponse(u))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ApproveCustomer переводит ожидающий аккаунт в статус active.
func (h *Handler) ApproveCustomer(w http.ResponseWriter, r *http.Request) {
	h.changeCustomerStatus(w, r, h.service.ApproveCustomer)
}

type suspendRequest struct {
	Confirm bool `json:"confirm"`
}

// SuspendCustomer блокирует аккаунт покупателя. Операция требует
// явного подтверждения в теле запроса.
func (h *Handler) SuspendCustomer(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.changeCustomerStatus(w, r, h.service.SuspendCustomer)
}

// ReactivateCustomer возвращает заблокированный аккаунт в статус active.
func (h *Handler) ReactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.changeCustomerStatus(w, r, h.service.ReactivateCustomer)
}

func (h *Handler) changeCustomerStatus(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID string) error) {
	userID := chi.URLParam(r, "userID")

	if err := fn(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("change customer status error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AdminListOrders возвращает все заказы, опционально отфильтрованные
// по статусу через параметр status.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	status := model.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !model.IsValidOrderStatus(status) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), status)
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// AdminGetOrder возвращает любой заказ по идентификатору.
func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
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

type orderPatchRequest struct {
	Status        *model.OrderStatus   `json:"status,omitempty"`
	PaymentStatus *model.PaymentStatus `json:"paymentStatus,omitempty"`
}

// UpdateOrder меняет статус заказа и/или статус оплаты.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req orderPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Status == nil && req.PaymentStatus == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Status != nil {
		if err := h.service.UpdateOrderStatus(r.Context(), orderID, *req.Status); err != nil {
			h.orderUpdateError(w, err, orderID)
			return
		}
	}
	if req.PaymentStatus != nil {
		if err := h.service.UpdatePaymentStatus(r.Context(), orderID, *req.PaymentStatus); err != nil {
			h.orderUpdateError(w, err, orderID)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) orderUpdateError(w http.ResponseWriter, err error, orderID string) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidStatus):
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	default:
		h.logger.Error("update order error", zap.Error(err), zap.String("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type adminNotesRequest struct {
	AdminNotes string `json:"adminNotes"`
}

// SetOrderNotes сохраняет внутренние заметки администратора по заказу.
func (h *Handler) SetOrderNotes(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req adminNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetOrderAdminNotes(r.Context(), orderID, req.AdminNotes); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("set order notes error", zap.Error(err), zap.String("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AdminListProducts возвращает страницу товаров любого статуса.
// По умолчанию показываются активные товары.
func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	status := model.ProductStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = model.ProductStatusActive
	case model.ProductStatusDraft, model.ProductStatusActive, model.ProductStatusArchived:
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state := catalog.StateFromQuery(r.URL.Query())
	browser := catalog.NewBrowser(h.catalog, h.searcher, h.logger, h.pageSize, state)
	browser.SetStatusFilter(status)
	browser.SetPage(state.Page)

	page, err := browser.Browse(r.Context())
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

type productRequest struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	ShortDescription     string   `json:"shortDescription,omitempty"`
	Category             string   `json:"category"`
	SKU                  string   `json:"sku,omitempty"`
	WholesalePrice       float64  `json:"wholesalePrice"`
	RetailPrice          float64  `json:"retailPrice"`
	CostPerItem          float64  `json:"costPerItem,omitempty"`
	HasBoxOption         bool     `json:"hasBoxOption,omitempty"`
	BoxWholesalePrice    float64  `json:"boxWholesalePrice,omitempty"`
	BoxRetailPrice       float64  `json:"boxRetailPrice,omitempty"`
	Inventory            int      `json:"inventory,omitempty"`
	LowStockThreshold    int      `json:"lowStockThreshold,omitempty"`
	MinimumOrderQuantity int      `json:"minimumOrderQuantity,omitempty"`
	WeightOz             float64  `json:"weightOz,omitempty"`
	Status               string   `json:"status,omitempty"`
	Featured             bool     `json:"featured,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	Images               []string `json:"images,omitempty"`
}

// CreateProduct создаёт товар каталога.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Category == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), service.ProductInput{
		Name:                 req.Name,
		Description:          req.Description,
		ShortDescription:     req.ShortDescription,
		Category:             req.Category,
		SKU:                  req.SKU,
		WholesalePrice:       req.WholesalePrice,
		RetailPrice:          req.RetailPrice,
		CostPerItem:          req.CostPerItem,
		HasBoxOption:         req.HasBoxOption,
		BoxWholesalePrice:    req.BoxWholesalePrice,
		BoxRetailPrice:       req.BoxRetailPrice,
		Inventory:            req.Inventory,
		LowStockThreshold:    req.LowStockThreshold,
		MinimumOrderQuantity: req.MinimumOrderQuantity,
		WeightOz:             req.WeightOz,
		Status:               model.ProductStatus(req.Status),
		Featured:             req.Featured,
		Tags:                 req.Tags,
		Images:               req.Images,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCategory):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrProductExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("create product error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toProductResponse(*product))
}

// ArchiveProduct убирает товар из каталога, переводя его в статус archived.
func (h *Handler) ArchiveProduct(w http.ResponseWriter, r *http.Request) {
	h.changeProductStatus(w, r, h.service.ArchiveProduct)
}

// ActivateProduct публикует товар, переводя его в статус active.
func (h *Handler) ActivateProduct(w http.ResponseWriter, r *http.Request) {
	h.changeProductStatus(w, r, h.service.ActivateProduct)
}

func (h *Handler) changeProductStatus(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, productID string) error) {
	productID := chi.URLParam(r, "productID")

	if err := fn(r.Context(), productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("change product status error", zap.Error(err), zap.String("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
