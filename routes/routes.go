package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/openbaduk/award-system/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	eventHandler *handlers.EventHandler,
	playerHandler *handlers.PlayerHandler,
	prizeHandler *handlers.PrizeHandler,
	preferenceHandler *handlers.PreferenceHandler,
	resultHandler *handlers.ResultHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListHandler)
		r.Post("/", eventHandler.CreateHandler)
		r.Get("/{eventID}", eventHandler.GetByIDHandler)
		r.Put("/{eventID}", eventHandler.UpdateHandler)
		r.Delete("/{eventID}", eventHandler.DeleteHandler)
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", playerHandler.ListHandler)
		r.Post("/", playerHandler.CreateHandler)
		r.Get("/{playerID}", playerHandler.GetByIDHandler)
		r.Put("/{playerID}", playerHandler.UpdateHandler)
		r.Delete("/{playerID}", playerHandler.DeleteHandler)

		r.Get("/{playerID}/preferences", preferenceHandler.ListHandler)
		r.Put("/{playerID}/preferences", preferenceHandler.ReplaceHandler)
	})

	router.Route("/prizes", func(r chi.Router) {
		r.Get("/", prizeHandler.ListHandler)
		r.Post("/", prizeHandler.CreateHandler)
		r.Get("/{prizeID}", prizeHandler.GetByIDHandler)
		r.Put("/{prizeID}", prizeHandler.UpdateHandler)
		r.Delete("/{prizeID}", prizeHandler.DeleteHandler)
		r.Post("/{prizeID}/photo", prizeHandler.UploadPhotoHandler)
	})

	router.Route("/results", func(r chi.Router) {
		r.Get("/", resultHandler.ListHandler)
		r.Post("/", resultHandler.CreateHandler)
		r.Get("/{resultID}", resultHandler.GetByIDHandler)
		r.Delete("/{resultID}", resultHandler.DeleteHandler)
		r.Put("/{resultID}/winners", resultHandler.ReplaceWinnersHandler)

		// Операции распределения наград: захват блокировки с рекомендациями,
		// финализация и полный откат.
		r.Get("/{resultID}/allocateAwards", resultHandler.AllocateHandler)
		r.Post("/{resultID}/allocateAwards", resultHandler.FinalizeHandler)
		r.Get("/{resultID}/deallocateAwards", resultHandler.DeallocateHandler)
	})

	router.Get("/dashboard", dashboardHandler.StatsHandler)
	router.Get("/ws/results/{resultID}", webSocketHandler.SubscribeHandler)
}
