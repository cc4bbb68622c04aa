// api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"funnelpulse/api/analytics"
	"funnelpulse/api/database"
	"funnelpulse/api/handlers"
	"funnelpulse/api/middleware"
	"funnelpulse/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	var logger *zap.Logger
	var err error
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// --- PostgreSQL (users, funnel definitions) ---
	dbClient, err := database.NewPostgresDB(logger)
	if err != nil {
		logger.Fatal("failed to initialize PostgreSQL database", zap.Error(err))
	}
	defer dbClient.Close()

	// --- ClickHouse (raw interaction events) ---
	chClient, err := database.NewClickHouseDB(logger)
	if err != nil {
		logger.Fatal("failed to initialize ClickHouse database", zap.Error(err))
	}
	defer chClient.Close()

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB, logger)
	funnelStore := store.NewFunnelStore(dbClient.DB, logger)
	eventStore := store.NewEventStore(chClient, logger)

	// --- Analysis engine ---
	engine := analytics.NewEngine(eventStore, funnelStore, logger)

	// --- Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore, logger)
	trackHandlers := handlers.NewTrackHandlers(eventStore, logger)
	funnelHandlers := handlers.NewFunnelHandlers(funnelStore, engine, logger)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// Authentication endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Protected routes (require a valid JWT token or API key)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(logger))
		{
			protected.POST("/track", trackHandlers.TrackEvents)

			protected.POST("/funnels", funnelHandlers.CreateFunnel)
			protected.GET("/funnels", funnelHandlers.ListFunnels)
			protected.GET("/funnels/:id", funnelHandlers.GetFunnel)
			protected.DELETE("/funnels/:id", funnelHandlers.DeleteFunnel)

			protected.GET("/funnels/:id/analysis", funnelHandlers.AnalyzeFunnel)
			protected.GET("/funnels/:id/cohorts", funnelHandlers.AnalyzeFunnelCohorts)
			protected.GET("/funnel-suggestions", funnelHandlers.SuggestFunnels)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Info("API server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
