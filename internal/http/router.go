package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

type RouterConfig struct {
	Registry       *session.Registry
	Catalog        *catalog.Service
	Checkout       checkout.Backend
	Notifier       checkout.OrderNotifier
	Confirmer      payment.Confirmer
	Logger         *zap.Logger
	RequestTimeout time.Duration
	SecureCookies  bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	cartHandler := NewCartHandler(cfg.Catalog, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Notifier, cfg.Confirmer, l, cfg.RequestTimeout)
	productHandler := NewProductHandler(cfg.Catalog, cfg.RequestTimeout)
	authHandler := NewAuthHandler(cfg.Registry, cfg.SecureCookies, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Catalog, cfg.RequestTimeout)
	adminHandler := NewAdminHandler(cfg.Catalog, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(l))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Registry, cfg.SecureCookies))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.Profile)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.GetCheckout)
			r.Post("/shipping", checkoutHandler.SubmitShipping)
			r.Post("/payment", checkoutHandler.SubmitPayment)
			r.Post("/edit/{step}", checkoutHandler.Edit)
			r.Post("/place-order", checkoutHandler.PlaceOrder)
		})
		r.Get("/orders", ordersHandler.ListOrders)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminOnly)
			r.Get("/orders", adminHandler.ListAllOrders)
			r.Post("/products", adminHandler.CreateProduct)
			r.Put("/products/{id}", adminHandler.UpdateProduct)
			r.Delete("/products/{id}", adminHandler.DeleteProduct)
		})
	})

	return r
}
