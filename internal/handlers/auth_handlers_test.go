package handlers

import (
	"net/http"
	"testing"

	"github.com/shoppy/backend/internal/models"
	"github.com/shoppy/backend/pkg/utils"
)

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("creates user and returns token", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "alice",
			"password": "secret123",
			"avatar":   "avatar-3",
		}, nil)
		assertStatus(t, resp, http.StatusCreated)

		body := decodeJSONMap(t, resp)
		data := body["data"].(map[string]any)
		if data["token"] == "" {
			t.Fatal("expected a token in the response")
		}
		user := data["user"].(map[string]any)
		if user["username"] != "alice" {
			t.Fatalf("expected username alice, got %v", user["username"])
		}
		if user["avatar"] != "avatar-3" {
			t.Fatalf("expected avatar-3, got %v", user["avatar"])
		}
		if _, leaked := user["passwordHash"]; leaked {
			t.Fatal("password hash must never appear in responses")
		}

		var stored models.User
		if err := env.db.First(&stored, "username = ?", "alice").Error; err != nil {
			t.Fatalf("user not persisted: %v", err)
		}
		if stored.PasswordHash == "secret123" {
			t.Fatal("password stored in clear text")
		}
		if !utils.CheckPassword("secret123", stored.PasswordHash) {
			t.Fatal("stored hash does not verify against the password")
		}
	})

	t.Run("defaults avatar and theme", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "bob",
			"password": "secret123",
		}, nil)
		assertStatus(t, resp, http.StatusCreated)

		body := decodeJSONMap(t, resp)
		user := body["data"].(map[string]any)["user"].(map[string]any)
		if user["avatar"] != "avatar-1" {
			t.Fatalf("expected default avatar-1, got %v", user["avatar"])
		}
		if user["theme"] != "system" {
			t.Fatalf("expected default theme system, got %v", user["theme"])
		}
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "alice",
			"password": "another-pass",
		}, nil)
		assertStatus(t, resp, http.StatusConflict)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "username already taken")
	})

	t.Run("validates username length", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "ab",
			"password": "secret123",
		}, nil)
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("validates password length", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "charlie",
			"password": "short",
		}, nil)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "password must be at least 6 characters")
	})

	t.Run("rejects unknown avatar", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "charlie",
			"password": "secret123",
			"avatar":   "avatar-99",
		}, nil)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid avatar")
	})
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "alice", "secret123")

	t.Run("returns token for valid credentials", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "alice",
			"password": "secret123",
		}, nil)
		assertStatus(t, resp, http.StatusOK)

		body := decodeJSONMap(t, resp)
		data := body["data"].(map[string]any)
		token, _ := data["token"].(string)
		if token == "" {
			t.Fatal("expected a token")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			t.Fatalf("issued token does not validate: %v", err)
		}
		if claims.Username != "alice" {
			t.Fatalf("expected claims for alice, got %s", claims.Username)
		}
	})

	t.Run("same error for wrong password and unknown user", func(t *testing.T) {
		wrongPass := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "alice",
			"password": "wrong-pass",
		}, nil)
		assertStatus(t, wrongPass, http.StatusUnauthorized)
		wrongPassBody := decodeJSONMap(t, wrongPass)

		unknownUser := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "nobody",
			"password": "secret123",
		}, nil)
		assertStatus(t, unknownUser, http.StatusUnauthorized)
		unknownUserBody := decodeJSONMap(t, unknownUser)

		if wrongPassBody["error"] != unknownUserBody["error"] {
			t.Fatalf("error messages differ: %v vs %v", wrongPassBody["error"], unknownUserBody["error"])
		}
		assertEnvelopeError(t, wrongPassBody, "invalid credentials")
	})

	t.Run("requires both fields", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "alice",
		}, nil)
		assertStatus(t, resp, http.StatusBadRequest)
	})
}

func TestMe(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "alice", "secret123")

	t.Run("returns the authenticated user", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		body := decodeJSONMap(t, resp)
		data := body["data"].(map[string]any)
		if data["id"] != user.ID.String() {
			t.Fatalf("expected id %s, got %v", user.ID, data["id"])
		}
	})

	t.Run("rejects missing token", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders("not-a-jwt"))
		assertStatus(t, resp, http.StatusUnauthorized)
	})
}

func TestUpdateMe(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice", "secret123")

	t.Run("updates avatar and theme", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{
			"avatar": "avatar-5",
			"theme":  "dark",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		data := decodeJSONMap(t, resp)["data"].(map[string]any)
		if data["avatar"] != "avatar-5" || data["theme"] != "dark" {
			t.Fatalf("update not applied: %+v", data)
		}
	})

	t.Run("partial update leaves the other field alone", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{
			"theme": "light",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		data := decodeJSONMap(t, resp)["data"].(map[string]any)
		if data["avatar"] != "avatar-5" {
			t.Fatalf("avatar changed unexpectedly: %v", data["avatar"])
		}
		if data["theme"] != "light" {
			t.Fatalf("theme not updated: %v", data["theme"])
		}
	})

	t.Run("rejects invalid theme", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{
			"theme": "neon",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid theme")
	})

	t.Run("rejects empty update", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{}, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
	})
}

func TestChangePassword(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice", "secret123")

	t.Run("rejects wrong old password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/password", map[string]any{
			"oldPassword": "wrong-pass",
			"newPassword": "brand-new-pass",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid credentials")
	})

	t.Run("rejects short new password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/password", map[string]any{
			"oldPassword": "secret123",
			"newPassword": "tiny",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("changes the password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/password", map[string]any{
			"oldPassword": "secret123",
			"newPassword": "brand-new-pass",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		oldLogin := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "alice",
			"password": "secret123",
		}, nil)
		assertStatus(t, oldLogin, http.StatusUnauthorized)

		newLogin := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"username": "alice",
			"password": "brand-new-pass",
		}, nil)
		assertStatus(t, newLogin, http.StatusOK)
	})
}
