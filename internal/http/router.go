package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	AllowedOrigins     []string
}

type Handlers struct {
	POS      *POSHandler
	Products *ProductHandler
	Orders   *OrdersHandler
	Journal  *JournalHandler
}

func NewRouter(cfg RouterConfig, h Handlers, logger *zap.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20 // 1MB
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(TerminalMiddleware)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", TerminalHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

			r.Get("/catalog", h.POS.Catalog)

			r.Post("/sessions", h.POS.StartSession)
			r.Route("/sessions/{session_id}", func(r chi.Router) {
				r.Delete("/", h.POS.EndSession)
				r.Get("/cart", h.POS.GetCart)
				r.Delete("/cart", h.POS.ClearCart)
				r.Post("/cart/lines", h.POS.AddLine)
				r.Put("/cart/lines/{line_id}", h.POS.SetQuantity)
				r.Delete("/cart/lines/{line_id}", h.POS.RemoveLine)
				r.Post("/checkout", h.POS.Checkout)
			})

			r.Get("/products", h.Products.List)
			r.Post("/products", h.Products.Create)
			r.Delete("/products/{product_id}", h.Products.Delete)
			r.Get("/products/{product_id}/image", h.Products.Image)

			r.Get("/orders", h.Orders.ListOrders)
			r.Get("/dashboard", h.Orders.Dashboard)
			r.Get("/journal", h.Journal.Recent)
		})

		// Uploads enforce their own, larger limit.
		r.Post("/products/{product_id}/image", h.Products.UploadImage)
	})

	return otelhttp.NewHandler(r, "pos-gateway")
}
