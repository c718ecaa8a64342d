package ui

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	// Public routes.
	r.Get("/", ui.HandleIndex)
	r.Get("/login", ui.HandleLogin)
	r.Post("/login", ui.HandleLoginPost)
	r.Get("/logout", ui.HandleLogout)

	// Student area.
	r.Group(func(r chi.Router) {
		r.Use(ui.AuthMiddleware)
		r.Get("/dashboard", ui.HandleDashboard)
	})

	// Admin area.
	r.Group(func(r chi.Router) {
		r.Use(ui.AuthMiddleware)
		r.Use(ui.AdminMiddleware)
		r.Get("/admin", ui.HandleAdmin)
	})
}
