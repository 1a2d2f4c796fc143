package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/headstone/internal/dashboard"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *dashboard.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Routing.
	r.Get("/route", h.GetRoute)
	r.Post("/navigate", h.Navigate)
	r.Post("/location", h.SetLocation)
	r.Get("/nav", h.ListNav)
	r.Get("/nav/{role}", h.GetNav)
	r.Get("/page", h.GetPage)

	// Search.
	r.Get("/search", h.Search)

	// Mock accounts and sessions.
	r.Route("/accounts/{kind}", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/", h.CreateAccount)
		r.Post("/reset", h.ResetPassword)
		r.Delete("/reset", h.CancelReset)
	})
	r.Route("/sessions/{kind}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/", h.Login)
		r.Delete("/", h.Logout)
	})
	r.Get("/notices", h.ListNotices)
	r.Post("/signin", h.SignIn)
	r.Put("/testing-view", h.SetTestingView)

	// Admin customer flows.
	r.Post("/onboarding", h.Onboard)
	r.Get("/directory", h.Directory)
	r.Get("/directory/selected", h.SelectedCustomer)
	r.Put("/directory/selected", h.SelectCustomer)

	// Scheduling.
	r.Get("/calendar-date", h.GetCalendarDate)
	r.Put("/calendar-date", h.SetCalendarDate)
	r.Post("/scheduling/services", h.CreateService)
	r.Post("/scheduling/services/{id}/assign", h.AssignService)
	r.Post("/emails", h.SendEmail)

	r.Get("/coordinates", h.ParseCoordinates)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
