package api

import (
	"net/http"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/api/handlers"
	"github.com/athebyme/shopify-bulk-sync/internal/api/middleware"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SetupRouter настраивает маршрутизатор управляющего API
func SetupRouter(
	syncHandler *handlers.SyncHandler,
	logger interfaces.LoggerPort,
	corsAllowedOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(corsAllowedOrigins))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Маршруты запусков синхронизации
		r.Route("/syncs", func(r chi.Router) {
			r.With(middleware.Timeout(60 * time.Second)).Post("/", syncHandler.StartSync)
			r.With(middleware.Timeout(15 * time.Second)).Get("/", syncHandler.ListSyncs)

			r.Route("/{id}", func(r chi.Router) {
				r.With(middleware.Timeout(15 * time.Second)).Get("/", syncHandler.GetSync)
				r.With(middleware.Timeout(15 * time.Second)).Get("/unresolved", syncHandler.GetUnresolved)
			})
		})

		// Согласование медиафайлов блокирует запрос до завершения
		r.Post("/reconcile", syncHandler.Reconcile)

		r.With(middleware.Timeout(60 * time.Second)).Post("/products", syncHandler.CreateProduct)
		r.With(middleware.Timeout(60 * time.Second)).Delete("/products", syncHandler.DeleteProducts)
		r.With(middleware.Timeout(15 * time.Second)).Get("/shop", syncHandler.GetShop)
	})

	return r
}
