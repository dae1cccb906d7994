package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"

	"link.mbb.feedback/internal/boot"
	"link.mbb.feedback/internal/handlers"
	"link.mbb.feedback/internal/service/access"
	"link.mbb.feedback/internal/service/feedback"
	"link.mbb.feedback/internal/service/identity"
	"link.mbb.feedback/internal/service/secret"
	"link.mbb.feedback/internal/service/session"
	"link.mbb.feedback/internal/service/token"
	"link.mbb.feedback/internal/service/user"
	"link.mbb.feedback/internal/store"
)

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	datastore, err := store.New(config)
	if err != nil {
		log.Fatalf("opening store: %+v", err)
	}
	defer datastore.Close()

	sessions, err := session.New(config)
	if err != nil {
		log.Fatalf("creating session service: %+v", err)
	}

	userService := user.New(datastore)
	resolver := identity.NewResolver(sessions, datastore)
	allocator := token.NewAllocator(datastore)
	engine := access.NewEngine(datastore, secret.NewVerifier())
	feedbackService := feedback.New(datastore, allocator, engine)

	server := echo.New()
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("feedback"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     strings.Split(config.Server.Origins, ","),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	server.POST("/auth/callback", handlers.AuthCallback(config, userService, sessions))
	server.POST("/logout", handlers.Logout())
	server.GET("/me", handlers.Me(resolver))

	server.POST("/feedback", handlers.CreateFeedback(config, feedbackService, resolver))
	server.GET("/feedback/:token", handlers.VisitFeedback(feedbackService, resolver))
	server.POST("/feedback/:token", handlers.UnlockFeedback(feedbackService, resolver))
	server.DELETE("/feedback/:id", handlers.DeleteFeedback(feedbackService, resolver))
	server.GET("/dashboard", handlers.Dashboard(feedbackService, resolver))

	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
