package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ranker/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	albumsHandler := handlers.NewAlbumsHandler(s.svc)
	photosHandler := handlers.NewPhotosHandler(s.svc)
	peopleHandler := handlers.NewPeopleHandler(s.svc)
	processHandler := handlers.NewProcessHandler(s.svc)
	findHandler := handlers.NewFindHandler(s.svc)

	// Health check
	s.router.Get("/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Albums
		r.Post("/albums", albumsHandler.Create)
		r.Get("/albums", albumsHandler.List)
		r.Get("/albums/{id}", albumsHandler.Get)
		r.Patch("/albums/{id}", albumsHandler.Rename)
		r.Delete("/albums/{id}", albumsHandler.Delete)

		// Photos
		r.Post("/albums/{id}/photos", photosHandler.Upload)
		r.Get("/albums/{id}/photos", photosHandler.List)
		r.Get("/albums/{id}/photos/{file}", photosHandler.Serve)
		r.Delete("/albums/{id}/photos/{file}", photosHandler.Delete)
		r.Get("/albums/{id}/photos/{file}/faces", photosHandler.Faces)

		// Processing pipeline
		r.Post("/albums/{id}/process", processHandler.Start)
		r.Get("/albums/{id}/status", processHandler.Status)

		// Album people
		r.Get("/albums/{id}/people", peopleHandler.List)
		r.Put("/albums/{id}/people/{idx}/name", peopleHandler.Rename)
		r.Delete("/albums/{id}/people/{idx}", peopleHandler.Hide)
		r.Get("/albums/{id}/people/{idx}/photos", peopleHandler.Ranked)
		r.Get("/albums/{id}/faces/{crop}", peopleHandler.Crop)

		// Person search
		r.Post("/find", findHandler.Find)

		// Global people
		r.Get("/people", peopleHandler.ListGlobal)
		r.Get("/people/{id}", peopleHandler.ResolveGlobal)
		r.Delete("/people/{id}", peopleHandler.DeleteGlobal)
		r.Get("/people/{id}/crop", peopleHandler.GlobalCrop)
	})
}
