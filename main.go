package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/VasudevanSk/googledrive-backend/database"
	"github.com/VasudevanSk/googledrive-backend/handlers"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	development := os.Getenv("APP_ENV") != "production"
	handlers.InitLogger(development)
	log := handlers.GetLogger()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(handlers.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	// Database connection
	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// External collaborators, constructed once and injected
	blob, err := handlers.NewS3BlobStore()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create blob store client")
	}

	mailer, err := handlers.NewSendGridMailer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mailer")
	}

	h := handlers.NewHandler(db, blob)
	authHandler := handlers.NewAuthHandler(db, mailer)

	e.GET("/health", h.HealthCheck)
	e.GET("/api/health", h.HealthCheck)

	api := e.Group("/api")

	// Auth routes (public)
	api.POST("/auth/register", authHandler.Register)
	api.GET("/auth/activate/:token", authHandler.Activate)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword)
	api.POST("/auth/reset-password", authHandler.ResetPassword)

	// Auth routes (protected)
	authApi := api.Group("")
	authApi.Use(authHandler.JWTMiddleware)
	authApi.GET("/auth/profile", authHandler.GetProfile)

	// File routes (protected)
	authApi.GET("/files", h.ListFiles)
	authApi.POST("/files/folder", h.CreateFolder)
	authApi.POST("/files/upload", h.UploadFile)
	authApi.GET("/files/download/:id", h.DownloadFile)
	authApi.PATCH("/files/:id", h.RenameEntry)
	authApi.DELETE("/files/:id", h.DeleteEntry)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		start := log.Info().Str("port", port).Str("version", Version)
		if GitCommit != "" {
			start = start.Str("commit", GitCommit)
		}
		if BuildTime != "" {
			start = start.Str("built", BuildTime)
		}
		start.Msg("starting server")
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
