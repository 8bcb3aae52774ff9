package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"storefront/internal/lifecycle"
	"storefront/internal/model"
	"storefront/internal/mw"
	"storefront/internal/service"
)

func NewRouter(authSvc *service.AuthService, orderSvc *service.OrderService, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/auth/register", RegisterHandler(authSvc, jwtSecret))
	r.Post("/auth/login", LoginHandler(authSvc, jwtSecret))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(jwtSecret))

		r.Get("/orders/my-orders", ListMyOrdersHandler(orderSvc))
		r.With(mw.RequireRole(model.RoleCustomer)).Post("/orders", CreateOrderHandler(orderSvc))

		r.With(mw.RequireRole(model.RoleAdmin)).Get("/orders", ListOrdersHandler(orderSvc))

		// Role and ownership checks for actions live in the service so both
		// actors get the same answers.
		for _, a := range lifecycle.Actions() {
			r.Put("/orders/{id}/"+string(a), TransitionHandler(orderSvc, a))
		}
	})

	return r
}
