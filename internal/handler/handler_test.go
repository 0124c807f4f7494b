package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/luckybee/storefront-system/internal/middleware"
	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/repository"
	"github.com/luckybee/storefront-system/internal/service"
)

type stubService struct {
	registerUserID string
	registerErr    error

	authUserID string
	authErr    error

	product    *model.Product
	productErr error

	cart    *model.Cart
	cartErr error

	addCartErr    error
	removeCartErr error

	placedOrder *model.Order
	placeErr    error

	order    *model.Order
	orderErr error

	orders    []model.Order
	ordersErr error

	customers    []model.User
	customersErr error

	statusChangeErr error

	createdProduct   *model.Product
	createProductErr error

	dashboard    *service.Dashboard
	dashboardErr error
}

func (s *stubService) RegisterUser(ctx context.Context, email, password, displayName, phone string) (string, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	return s.authUserID, s.authErr
}

func (s *stubService) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	return s.cart, s.cartErr
}

func (s *stubService) AddCartItem(ctx context.Context, userID, productID, variantID string, quantity int) error {
	return s.addCartErr
}

func (s *stubService) RemoveCartItem(ctx context.Context, userID, productID string) error {
	return s.removeCartErr
}

func (s *stubService) PlaceOrder(ctx context.Context, userID string, input service.CheckoutInput) (*model.Order, error) {
	return s.placedOrder, s.placeErr
}

func (s *stubService) GetOrderForUser(ctx context.Context, userID, orderID string) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubService) GetDashboard(ctx context.Context) (*service.Dashboard, error) {
	return s.dashboard, s.dashboardErr
}

func (s *stubService) ListCustomers(ctx context.Context, status model.AccountStatus) ([]model.User, error) {
	return s.customers, s.customersErr
}

func (s *stubService) ApproveCustomer(ctx context.Context, userID string) error {
	return s.statusChangeErr
}

func (s *stubService) SuspendCustomer(ctx context.Context, userID string) error {
	return s.statusChangeErr
}

func (s *stubService) ReactivateCustomer(ctx context.Context, userID string) error {
	return s.statusChangeErr
}

func (s *stubService) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubService) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !model.IsValidOrderStatus(status) {
		return service.ErrInvalidStatus
	}
	return s.statusChangeErr
}

func (s *stubService) UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error {
	if !model.IsValidPaymentStatus(status) {
		return service.ErrInvalidStatus
	}
	return s.statusChangeErr
}

func (s *stubService) SetOrderAdminNotes(ctx context.Context, orderID, notes string) error {
	return s.statusChangeErr
}

func (s *stubService) CreateProduct(ctx context.Context, input service.ProductInput) (*model.Product, error) {
	return s.createdProduct, s.createProductErr
}

func (s *stubService) ArchiveProduct(ctx context.Context, productID string) error {
	return s.statusChangeErr
}

func (s *stubService) ActivateProduct(ctx context.Context, productID string) error {
	return s.statusChangeErr
}

// fakeCatalogRepo отдаёт товары страницами по курсору-индексу.
type fakeCatalogRepo struct {
	products []model.Product
}

func (f *fakeCatalogRepo) matching(filter repository.ProductFilter) []model.Product {
	var out []model.Product
	for _, p := range f.products {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (f *fakeCatalogRepo) CountProducts(ctx context.Context, filter repository.ProductFilter) (int, error) {
	return len(f.matching(filter)), nil
}

func (f *fakeCatalogRepo) ListProducts(ctx context.Context, filter repository.ProductFilter, sort repository.ProductSort, limit int, after string) ([]model.Product, string, error) {
	matched := f.matching(filter)

	start := 0
	if after != "" {
		idx, err := strconv.Atoi(after)
		if err != nil {
			return nil, "", repository.ErrBadCursor
		}
		start = idx
	}
	if start >= len(matched) {
		return nil, "", nil
	}

	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return matched[start:end], strconv.Itoa(end), nil
}

type stubUserLoader struct {
	user *model.User
}

func (s *stubUserLoader) GetUser(ctx context.Context, id string) (*model.User, error) {
	if s.user == nil {
		return nil, repository.ErrUserNotFound
	}
	return s.user, nil
}

func newTestHandler(t *testing.T, svc Service, repo *fakeCatalogRepo, user *model.User) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	if repo == nil {
		repo = &fakeCatalogRepo{}
	}

	auth := middleware.NewAuthMiddleware("test-secret", &stubUserLoader{user: user})

	return NewHandler(svc, repo, nil, logger, auth, 16)
}

func authedRequest(t *testing.T, h *Handler, method, target string, body []byte) *http.Request {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	h.auth.SetAuthCookie(rec, "user-1")
	req.AddCookie(rec.Result().Cookies()[0])

	return req
}

func approvedUser() *model.User {
	return &model.User{
		ID:            "user-1",
		Email:         "buyer@example.com",
		Role:          model.RoleCustomer,
		AccountStatus: model.AccountStatusActive,
	}
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{registerUserID: "user-1"}
	h := newTestHandler(t, svc, nil, nil)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "buyer@example.com",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("auth cookie must be set on register")
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{registerErr: repository.ErrUserExists}
	h := newTestHandler(t, svc, nil, nil)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "buyer@example.com",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{authErr: service.ErrInvalidCredentials}
	h := newTestHandler(t, svc, nil, nil)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "buyer@example.com",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMe_ReturnsDerivedFlags(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil, approvedUser())

	req := authedRequest(t, h, http.MethodGet, "/api/user/me", nil)
	rec := httptest.NewRecorder()

	h.auth.RequireAuth(http.HandlerFunc(h.Me)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp identityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Approved {
		t.Fatalf("active account must report approved")
	}
	if resp.Admin {
		t.Fatalf("customer must not report admin")
	}
}

func TestListProducts_BrowsePage(t *testing.T) {
	products := make([]model.Product, 0, 37)
	for i := 0; i < 37; i++ {
		products = append(products, model.Product{
			ID:     "prod-" + strconv.Itoa(i),
			Name:   "Card " + strconv.Itoa(i),
			Status: model.ProductStatusActive,
		})
	}
	repo := &fakeCatalogRepo{products: products}
	h := newTestHandler(t, &stubService{}, repo, approvedUser())

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/products?page=3", nil)
	rec := httptest.NewRecorder()

	h.ListProducts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp catalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Mode != "browse" {
		t.Fatalf("mode = %q, want browse", resp.Mode)
	}
	if resp.Total != 37 || resp.TotalPages != 3 {
		t.Fatalf("total = %d, totalPages = %d, want 37 and 3", resp.Total, resp.TotalPages)
	}
	if len(resp.Products) != 5 {
		t.Fatalf("len(products) = %d, want 5 on last page", len(resp.Products))
	}
	if resp.Query != "page=3" {
		t.Fatalf("query = %q, want canonical page=3", resp.Query)
	}
}

func TestGetProduct_ArchivedHidden(t *testing.T) {
	svc := &stubService{
		product: &model.Product{ID: "prod-1", Slug: "card", Status: model.ProductStatusArchived},
	}
	h := newTestHandler(t, svc, nil, approvedUser())

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/products/card", nil)
	rec := httptest.NewRecorder()

	h.GetProduct(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetCart_MissingCartIsEmpty(t *testing.T) {
	svc := &stubService{cartErr: repository.ErrCartNotFound}
	h := newTestHandler(t, svc, nil, approvedUser())

	req := authedRequest(t, h, http.MethodGet, "/api/user/cart", nil)
	rec := httptest.NewRecorder()

	h.auth.RequireAuth(http.HandlerFunc(h.GetCart)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 0 || resp.Subtotal != 0 {
		t.Fatalf("missing cart must decode as empty, got %+v", resp)
	}
}

func TestAddCartItem_BelowMinimum(t *testing.T) {
	svc := &stubService{addCartErr: service.ErrBelowMinimumQuantity}
	h := newTestHandler(t, svc, nil, approvedUser())

	body, _ := json.Marshal(addCartItemRequest{ProductID: "prod-1", Quantity: 2})
	req := authedRequest(t, h, http.MethodPost, "/api/user/cart/items", body)
	rec := httptest.NewRecorder()

	h.auth.RequireAuth(http.HandlerFunc(h.AddCartItem)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestCheckout_IncompleteAddress(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil, approvedUser())

	body, _ := json.Marshal(checkoutRequest{
		ShippingAddress: model.OrderAddress{Name: "Buyer"},
		SameAsShipping:  true,
	})
	req := authedRequest(t, h, http.MethodPost, "/api/user/checkout", body)
	rec := httptest.NewRecorder()

	h.auth.RequireAuth(http.HandlerFunc(h.Checkout)).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCheckout_Success(t *testing.T) {
	svc := &stubService{
		placedOrder: &model.Order{
			ID:          "user-1-1700000000000",
			OrderNumber: "LBP-849301-27",
			UserID:      "user-1",
			Subtotal:    2100,
			Total:       2100,
		},
	}
	h := newTestHandler(t, svc, nil, approvedUser())

	body, _ := json.Marshal(checkoutRequest{
		ShippingAddress: model.OrderAddress{
			Name:       "Buyer",
			Street1:    "12 Main St",
			City:       "Portland",
			State:      "OR",
			PostalCode: "97201",
			Country:    "US",
		},
		SameAsShipping: true,
	})
	req := authedRequest(t, h, http.MethodPost, "/api/user/checkout", body)
	rec := httptest.NewRecorder()

	h.auth.RequireAuth(http.HandlerFunc(h.Checkout)).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OrderNumber != "LBP-849301-27" {
		t.Fatalf("orderNumber = %q", resp.OrderNumber)
	}
	if resp.TotalDisplay != "$21.00" {
		t.Fatalf("totalDisplay = %q, want $21.00", resp.TotalDisplay)
	}
}

func TestGetOrders_NoContent(t *testing.T) {
	svc := &stubService{orders: []model.Order{}}
	h := newTestHandler(t, svc, nil, approvedUser())

	req := authedRequest(t, h, http.MethodGet, "/api/user/orders", nil)
	rec := httptest.NewRecorder()

	h.auth.RequireAuth(http.HandlerFunc(h.GetOrders)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestRouter_AdminRoutesForbiddenForCustomer(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil, approvedUser())
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodGet, "/api/admin/customers", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRouter_CatalogRequiresApproval(t *testing.T) {
	pending := approvedUser()
	pending.AccountStatus = model.AccountStatusPending

	h := newTestHandler(t, &stubService{}, nil, pending)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodGet, "/api/catalog/products", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
