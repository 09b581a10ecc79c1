package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"cinelog-api/internal/auth"
	"cinelog-api/internal/config"
	"cinelog-api/internal/database"
	"cinelog-api/internal/handler"
	"cinelog-api/internal/middleware"
	"cinelog-api/internal/repository"
	"cinelog-api/internal/service"
	"cinelog-api/internal/tmdb"
)

func main() {
	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable)
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without cache", "error", err)
	}

	// Initialize TMDB client
	tmdbClient := tmdb.NewClient(cfg.TMDB)

	// Initialize layers
	movieRepo := repository.NewMovieRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	tokens := auth.NewTokenManager(cfg.JWT)
	imageBase := cfg.TMDB.ImageBase

	catalogSvc := service.NewCatalogService(movieRepo, activityRepo, tmdbClient, rdb, imageBase)
	discoverySvc := service.NewDiscoveryService(movieRepo, activityRepo, tmdbClient, rdb, imageBase)
	activitySvc := service.NewActivityService(activityRepo, catalogSvc, imageBase)
	recommendationSvc := service.NewRecommendationService(movieRepo, activityRepo, tmdbClient, rdb, imageBase)
	userSvc := service.NewUserService(userRepo, tokens)

	movieHandler := handler.NewMovieHandler(catalogSvc, discoverySvc, activitySvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	recommendationHandler := handler.NewRecommendationHandler(recommendationSvc)
	userHandler := handler.NewUserHandler(userSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CineLog API",
		ServerHeader: "CineLog-API",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(handler.ErrorResponse{Error: err.Error()})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(middleware.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.WindowSeconds).Handler())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, swaggerYAML)
	}

	requireAuth := middleware.RequireAuth(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)

	// API routes. Static movie paths are registered before /movies/:id so
	// the wildcard does not shadow them.
	api := app.Group("/api/v1")
	api.Get("/health", movieHandler.Health)

	api.Post("/auth/register", userHandler.Register)
	api.Post("/auth/login", userHandler.Login)
	api.Post("/auth/refresh", userHandler.Refresh)

	api.Get("/movies", movieHandler.ListMovies)
	api.Get("/movies/search", movieHandler.SearchMovies)
	api.Get("/movies/trending", movieHandler.Trending)
	api.Get("/movies/genres", movieHandler.Genres)
	api.Get("/movies/discover", movieHandler.DiscoverByGenres, optionalAuth)
	api.Get("/movies/by-rating", movieHandler.ByRating, optionalAuth)
	api.Get("/movies/recommendations", recommendationHandler.Recommendations, requireAuth)
	api.Get("/movies/:id", movieHandler.GetMovieDetail, optionalAuth)
	api.Get("/movies/:id/reviews", movieHandler.MovieReviews)

	api.Post("/movies/:id/rating", activityHandler.RateMovie, requireAuth)
	api.Put("/movies/:id/rating", activityHandler.RateMovie, requireAuth)
	api.Delete("/movies/:id/rating", activityHandler.DeleteRating, requireAuth)
	api.Post("/movies/:id/favorite", activityHandler.SetFlag("favorite"), requireAuth)
	api.Delete("/movies/:id/favorite", activityHandler.UnsetFlag("favorite"), requireAuth)
	api.Post("/movies/:id/watched", activityHandler.SetFlag("watched"), requireAuth)
	api.Delete("/movies/:id/watched", activityHandler.UnsetFlag("watched"), requireAuth)
	api.Post("/movies/:id/watch-later", activityHandler.SetFlag("watch_later"), requireAuth)
	api.Delete("/movies/:id/watch-later", activityHandler.UnsetFlag("watch_later"), requireAuth)
	api.Post("/movies/:id/review", activityHandler.ReviewMovie, requireAuth)
	api.Delete("/movies/:id/review", activityHandler.DeleteReview, requireAuth)

	api.Get("/users/me", userHandler.Profile, requireAuth)
	api.Put("/users/me", userHandler.UpdateProfile, requireAuth)
	api.Get("/users/me/ratings", activityHandler.Ratings, requireAuth)
	api.Get("/users/me/favorites", activityHandler.Favorites, requireAuth)
	api.Get("/users/me/watched", activityHandler.Watched, requireAuth)
	api.Get("/users/me/watch-later", activityHandler.Watchlist, requireAuth)
	api.Get("/users/me/history", activityHandler.History, requireAuth)

	api.Post("/admin/sync", movieHandler.SyncMovies, requireAuth)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
