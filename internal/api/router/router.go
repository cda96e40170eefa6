package router

import (
	"net/http"

	_ "github.com/RoyceAzure/lab/storefront/docs"
	"github.com/RoyceAzure/lab/storefront/internal/api"
	m "github.com/RoyceAzure/lab/storefront/internal/api/middleware"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

const checkoutRateScope = "checkout"

type Options struct {
	Verifier        auth.IVerifier
	CheckoutLimiter ratelimit.Limiter
	AllowedOrigins  []string
	Logger          zerolog.Logger
}

func SetupRouter(server *api.Server, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// 配置 CORS
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			MaxAge:           300,
		}))
	}

	// 全局中間件
	r.Use(m.RequestIdMiddleware)
	// logger 同時負責 recover，需包住之後所有中間件
	r.Use(m.LoggerMiddleware(opts.Logger))
	r.Use(middleware.RealIP)
	r.Use(m.AuthPayloadMiddleware(opts.Verifier))

	// Swagger 文檔
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.Handler())

	checkoutLimit := m.NewRateLimitMiddleware(opts.CheckoutLimiter, checkoutRateScope)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", server.HealthHandler.Health)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", server.ProductHandler.ListProducts)
			r.Get("/search", server.ProductHandler.SearchProducts)
			r.Get("/{id}", server.ProductHandler.GetProduct)
			r.Get("/{id}/reviews", server.ProductHandler.ListReviews)
			r.With(m.RequireAuth).Post("/{id}/reviews", server.ProductHandler.CreateReview)
		})

		r.Group(func(r chi.Router) {
			r.Use(m.RequireAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", server.CartHandler.GetCart)
				r.Post("/", server.CartHandler.AddItem)
				r.Delete("/", server.CartHandler.ClearCart)
				r.Put("/{productId}", server.CartHandler.UpdateItem)
				r.Delete("/{productId}", server.CartHandler.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", server.CartHandler.ListWishlist)
				r.Post("/", server.CartHandler.AddWishlistItem)
				r.Delete("/{productId}", server.CartHandler.RemoveWishlistItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", server.OrderHandler.ListOrders)
				r.With(checkoutLimit).Post("/", server.OrderHandler.CreateOrder)
				r.Get("/{id}", server.OrderHandler.GetOrder)
				r.Post("/{id}/cancel", server.OrderHandler.CancelOrder)
				r.Patch("/{id}/status", server.OrderHandler.UpdateOrderStatus)
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", server.UserHandler.GetProfile)
				r.Put("/profile", server.UserHandler.UpdateProfile)
				r.Get("/addresses", server.UserHandler.ListAddresses)
				r.Post("/addresses", server.UserHandler.CreateAddress)
				r.Put("/addresses/{id}", server.UserHandler.UpdateAddress)
				r.Delete("/addresses/{id}", server.UserHandler.DeleteAddress)
			})
		})
	})

	return r
}

// LogRoutes 啟動時列出所有路由
func LogRoutes(r chi.Routes, logger zerolog.Logger) error {
	return chi.Walk(r, func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		logger.Debug().Str("method", method).Str("route", route).Msg("route registered")
		return nil
	})
}
