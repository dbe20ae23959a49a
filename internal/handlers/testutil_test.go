package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/shoppy/backend/internal/database"
	"github.com/shoppy/backend/internal/middleware"
	"github.com/shoppy/backend/internal/models"
	"github.com/shoppy/backend/internal/realtime"
	"github.com/shoppy/backend/internal/services"
	"github.com/shoppy/backend/pkg/logger"
	"github.com/shoppy/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	hub *realtime.Hub
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}

	accessService := services.NewAccessService(db)
	hub := realtime.NewHub(func(ctx context.Context, cartID, userID uuid.UUID) bool {
		return accessService.IsMember(ctx, cartID, userID)
	})

	authHandler := NewAuthHandler(db)
	cartsHandler := NewCartsHandler(db, accessService, hub)
	productsHandler := NewProductsHandler(db, accessService, hub)
	invitationsHandler := NewInvitationsHandler(db, accessService, hub, 7)
	catalogHandler := NewCatalogHandler(db)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

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

	return &testEnv{app: app, db: db, hub: hub}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Avatar:       models.UserAvatar1,
		Theme:        models.UserThemeSystem,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestCart(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Cart {
	t.Helper()

	cart := &models.Cart{Name: name, Icon: "default", OwnerID: owner.ID}
	if err := db.Create(cart).Error; err != nil {
		t.Fatalf("failed creating test cart: %v", err)
	}
	membership := &models.CartMembership{
		CartID: cart.ID,
		UserID: owner.ID,
		Role:   models.CartRoleOwner,
	}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed creating owner membership: %v", err)
	}
	return cart
}

func addTestMember(t *testing.T, db *gorm.DB, cart *models.Cart, user *models.User, role models.CartRole) {
	t.Helper()

	membership := &models.CartMembership{CartID: cart.ID, UserID: user.ID, Role: role}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed adding test member: %v", err)
	}
}

// fakeSubscriber records published envelopes so tests can assert on the
// fan-out without a websocket connection.
type fakeSubscriber struct {
	mu       sync.Mutex
	received []realtime.Envelope
}

func (f *fakeSubscriber) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok := v.(realtime.Envelope)
	if ok {
		f.received = append(f.received, env)
	}
	return nil
}

func (f *fakeSubscriber) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.received))
	for _, env := range f.received {
		names = append(names, env.Event)
	}
	return names
}

func subscribeToCart(t *testing.T, env *testEnv, user *models.User, cartID uuid.UUID) *fakeSubscriber {
	t.Helper()

	sub := &fakeSubscriber{}
	env.hub.Register(sub, user.ID)
	if !env.hub.Join(context.Background(), sub, cartID) {
		t.Fatalf("expected user %s to join cart %s", user.Username, cartID)
	}
	return sub
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
