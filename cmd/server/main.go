package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/shoppy/backend/internal/config"
	"github.com/shoppy/backend/internal/database"
	"github.com/shoppy/backend/internal/handlers"
	"github.com/shoppy/backend/internal/middleware"
	"github.com/shoppy/backend/internal/realtime"
	"github.com/shoppy/backend/internal/services"
	"github.com/shoppy/backend/pkg/logger"
	"github.com/shoppy/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	accessService := services.NewAccessService(db)
	hub := realtime.NewHub(func(ctx context.Context, cartID, userID uuid.UUID) bool {
		return accessService.IsMember(ctx, cartID, userID)
	})

	authHandler := handlers.NewAuthHandler(db)
	cartsHandler := handlers.NewCartsHandler(db, accessService, hub)
	productsHandler := handlers.NewProductsHandler(db, accessService, hub)
	invitationsHandler := handlers.NewInvitationsHandler(db, accessService, hub, cfg.Invitation.ExpiryDays)
	catalogHandler := handlers.NewCatalogHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/ws", realtime.UpgradeGate(), realtime.Serve(hub))

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	cartRoutes := api.Group("/carts", authMiddleware.RequireAuth)
	cartRoutes.Get("/", cartsHandler.List)
	cartRoutes.Post("/", cartsHandler.Create)
	cartRoutes.Get("/:id", cartsHandler.Get)
	cartRoutes.Put("/:id", cartsHandler.Update)
	cartRoutes.Delete("/:id", cartsHandler.Delete)
	cartRoutes.Delete("/:id/users/:userId", cartsHandler.RemoveMember)

	cartRoutes.Get("/:cartId/products", productsHandler.List)
	cartRoutes.Post("/:cartId/products", productsHandler.Add)
	cartRoutes.Get("/:cartId/products/autocomplete", productsHandler.Autocomplete)
	cartRoutes.Delete("/:cartId/products/completed", productsHandler.DeleteCompleted)
	cartRoutes.Delete("/:cartId/products", productsHandler.Clear)

	api.Put("/products/:id", authMiddleware.RequireAuth, productsHandler.Update)
	api.Delete("/products/:id", authMiddleware.RequireAuth, productsHandler.Delete)

	cartRoutes.Post("/:cartId/invitations", invitationsHandler.Create)
	cartRoutes.Get("/:cartId/invitations", invitationsHandler.ListForCart)
	api.Get("/invitations/:token", authMiddleware.OptionalAuth, invitationsHandler.GetByToken)
	api.Post("/invitations/:token/accept", authMiddleware.RequireAuth, invitationsHandler.Accept)
	api.Delete("/invitations/:id", authMiddleware.RequireAuth, invitationsHandler.Revoke)

	catalogRoutes := api.Group("/catalog", authMiddleware.RequireAuth)
	catalogRoutes.Get("/", catalogHandler.List)
	catalogRoutes.Post("/", catalogHandler.Create)
	catalogRoutes.Put("/:id", catalogHandler.Update)
	catalogRoutes.Delete("/:id", catalogHandler.Delete)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
