package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"possync/m/internal/auth"
	"possync/m/internal/campaign"
	"possync/m/internal/connector"
	"possync/m/internal/service"
	"possync/m/internal/stats"
)

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Services  *service.Services
	Stats     *stats.Service
	Campaigns *campaign.Service
	Session   *auth.Manager
	Verifier  *auth.Verifier
	Sync      *connector.Connector
	Registry  *prometheus.Registry
	Log       *zap.Logger
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	svc       *service.Services
	stats     *stats.Service
	campaigns *campaign.Service
	session   *auth.Manager
	verifier  *auth.Verifier
	sync      *connector.Connector
	registry  *prometheus.Registry
	metrics   *httpMetrics
	log       *zap.Logger
}

// New constructs a Handler. Request metrics are registered on d.Registry.
func New(d Deps) *Handler {
	return &Handler{
		svc:       d.Services,
		stats:     d.Stats,
		campaigns: d.Campaigns,
		session:   d.Session,
		verifier:  d.Verifier,
		sync:      d.Sync,
		registry:  d.Registry,
		metrics:   newHTTPMetrics(d.Registry),
		log:       d.Log,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/logout", h.logout)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
			r.Get("/{id}", h.getCategory)
			r.Put("/{id}", h.updateCategory)
			r.Delete("/{id}", h.deleteCategory)
			r.Get("/{id}/products", h.listCategoryProducts)
		})

		pr.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Get("/search", h.searchProducts)
			r.Get("/low-stock", h.lowStockProducts)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
			r.Get("/{id}/movements", h.productMovements)
		})

		pr.Route("/customers", func(r chi.Router) {
			r.Get("/", h.listCustomers)
			r.Post("/", h.createCustomer)
			r.Get("/search", h.searchCustomers)
			r.Get("/{id}", h.getCustomer)
			r.Put("/{id}", h.updateCustomer)
			r.Delete("/{id}", h.deleteCustomer)
			r.Get("/{id}/orders", h.customerOrders)
		})

		pr.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.listSuppliers)
			r.Post("/", h.createSupplier)
			r.Get("/{id}", h.getSupplier)
			r.Put("/{id}", h.updateSupplier)
			r.Delete("/{id}", h.deleteSupplier)
		})

		pr.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/status", h.updateOrderStatus)
		})

		pr.Route("/stock", func(r chi.Router) {
			r.Get("/movements", h.listMovements)
			r.Post("/movements", h.recordMovement)
		})

		pr.Route("/stats", func(r chi.Router) {
			r.Get("/revenue", h.revenueStats)
			r.Get("/categories", h.categoryStats)
			r.Get("/top-products", h.topProducts)
			r.Get("/stock-levels", h.stockLevels)
			r.Get("/top-customers", h.topCustomers)
			r.Get("/critical-stock", h.criticalStock)
			r.Get("/distribution", h.salesDistribution)
		})

		pr.Route("/campaigns", func(r chi.Router) {
			r.Get("/recipients", h.campaignRecipients)
			r.Post("/email", h.sendEmailCampaign)
		})

		pr.Route("/sync", func(r chi.Router) {
			r.Post("/flush", h.flushSync)
			r.Get("/status", h.syncStatus)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		claims, err := h.verifier.Verify(tokenString)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := auth.ContextWithUserID(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondServiceError maps service errors onto status codes. Anything
// unexpected is logged and reported with msg only.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, campaign.ErrNoRecipients),
		errors.Is(err, campaign.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error(msg,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, msg)
	}
}

func respondDelete(w http.ResponseWriter, res service.DeleteResult) {
	if !res.Success {
		respondJSON(w, http.StatusConflict, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Helpers
func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
