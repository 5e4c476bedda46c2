// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"admissions-workflow/internal/common/logger"
)

// NewRouter assembles the HTTP surface of the admissions service.
func NewRouter(h *Handler, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/applications", h.HandleSubmit)
		r.Get("/applications", h.HandleList)
		r.Get("/applications/counts", h.HandleCounts)
		r.Get("/applications/{id}", h.HandleGet)
		r.Post("/applications/{id}/transitions", h.HandleTransition)
		r.Post("/applications/{id}/documents/{docID}/upload", h.HandleUploadDocument)
		r.Post("/applications/{id}/documents/{docID}/verify", h.HandleVerifyDocument)
		r.Post("/applications/{id}/documents/{docID}/reject", h.HandleRejectDocument)
	})

	return r
}

// requestLogger logs one line per request after it completes.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			})
		})
	}
}
