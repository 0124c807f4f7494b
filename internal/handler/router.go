package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/luckybee/storefront-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireAuth)

			r.Get("/me", h.Me)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequireApproved)

				r.Get("/cart", h.GetCart)
				r.Post("/cart/items", h.AddCartItem)
				r.Delete("/cart/items/{productID}", h.RemoveCartItem)

				r.Post("/checkout", h.Checkout)
				r.Get("/orders", h.GetOrders)
				r.Get("/orders/{orderID}", h.GetOrder)
			})
		})
	})

	r.Route("/api/catalog", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)
		r.Use(h.auth.RequireApproved)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{slug}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)
		r.Use(h.auth.RequireAdmin)

		r.Get("/dashboard", h.Dashboard)

		r.Get("/customers", h.ListCustomers)
		r.Post("/customers/{userID}/approve", h.ApproveCustomer)
		r.Post("/customers/{userID}/suspend", h.SuspendCustomer)
		r.Post("/customers/{userID}/reactivate", h.ReactivateCustomer)

		r.Get("/orders", h.AdminListOrders)
		r.Get("/orders/{orderID}", h.AdminGetOrder)
		r.Patch("/orders/{orderID}", h.UpdateOrder)
		r.Put("/orders/{orderID}/notes", h.SetOrderNotes)

		r.Get("/products", h.AdminListProducts)
		r.Post("/products", h.CreateProduct)
		r.Post("/products/{productID}/archive", h.ArchiveProduct)
		r.Post("/products/{productID}/activate", h.ActivateProduct)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
