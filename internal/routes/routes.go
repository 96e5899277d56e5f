package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
)

// SetupRoutes mounts the journal API. requireUser guards user routes and
// requireOperator guards /api/admin.
func SetupRoutes(r chi.Router, h *handlers.Handlers, requireUser, requireOperator func(http.Handler) http.Handler) {
	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/api/posts", h.CreatePost)
		r.Get("/api/posts", h.ListPosts)
		r.Put("/api/posts/{id}", h.UpdatePost)

		r.Get("/api/advice", h.ListAdvice)
		r.Get("/api/advice/latest", h.LatestAdvice)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireOperator)

		r.Get("/api/admin/advice/runs", h.ListRuns)
	})
}

// SetupOperatorRoutes mounts the scheduler process's operator API. Every
// route needs the operator token.
func SetupOperatorRoutes(r chi.Router, op *handlers.Operator, requireOperator func(http.Handler) http.Handler) {
	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(requireOperator)

		r.Post("/api/scheduler/trigger", op.TriggerRun)
		r.Get("/api/scheduler/runs/last", op.LastRun)
	})
}

// Middleware is the request-level stack shared by every route.
func Middleware(allowedOrigins []string, production bool, limiter *middleware.IPRateLimiter, redisLimit func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{middleware.CORS(allowedOrigins)}
	if production {
		return append(mws, middleware.ProductionSecurity(limiter)...)
	}
	return append(mws, redisLimit)
}
