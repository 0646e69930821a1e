package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learning_assist/internal/auth"
	"learning_assist/internal/models"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestHandleRegister(t *testing.T) {
	t.Run("creates a user and returns a token", func(t *testing.T) {
		deps, users, _ := testDependencies()

		w, resp := postJSON(t, deps.handleRegister, "/auth/register",
			`{"email":"Teacher@Example.com ","password":"pw","name":" Jo ","user_type":"teacher","school_id":"sch-1"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "User registered successfully", resp["message"])
		assert.NotEmpty(t, resp["token"])

		user := resp["user"].(map[string]any)
		assert.Equal(t, "teacher@example.com", user["email"])
		assert.Equal(t, "Jo", user["name"])
		assert.Equal(t, "sch-1", user["school_id"])
		assert.NotContains(t, user, "password_hash")
		assert.NotContains(t, user, "salt")

		stored, err := users.GetByEmail(t.Context(), "teacher@example.com")
		require.NoError(t, err)
		assert.True(t, stored.IsActive)

		claims, err := auth.VerifyToken(resp["token"].(string), deps.TokenSecret)
		require.NoError(t, err)
		assert.Equal(t, stored.UserID, claims.UserID)
	})

	t.Run("missing fields", func(t *testing.T) {
		deps, _, _ := testDependencies()

		w, resp := postJSON(t, deps.handleRegister, "/auth/register", `{"email":"a@b.c","password":"pw"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing required field: name", resp["error"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		deps, _, _ := testDependencies()
		body := `{"email":"a@b.c","password":"pw","name":"A","user_type":"teacher"}`

		w, _ := postJSON(t, deps.handleRegister, "/auth/register", body)
		require.Equal(t, http.StatusCreated, w.Code)

		w, resp := postJSON(t, deps.handleRegister, "/auth/register", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Email already registered", resp["error"])
	})

	t.Run("invalid JSON", func(t *testing.T) {
		deps, _, _ := testDependencies()

		w, resp := postJSON(t, deps.handleRegister, "/auth/register", `{broken`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON in request body", resp["error"])
	})
}

func registerUser(t *testing.T, deps *Dependencies, body string) {
	t.Helper()
	w, _ := postJSON(t, deps.handleRegister, "/auth/register", body)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleLogin(t *testing.T) {
	t.Run("email and password", func(t *testing.T) {
		deps, _, _ := testDependencies()
		registerUser(t, deps, `{"email":"jo@school.org","password":"pw","name":"Jo","user_type":"teacher"}`)

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"email":"JO@school.org","password":"pw"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Login successful", resp["message"])
		assert.NotEmpty(t, resp["token"])
		user := resp["user"].(map[string]any)
		assert.Equal(t, "jo@school.org", user["email"])
		assert.NotEmpty(t, user["last_login"])
	})

	t.Run("wrong password", func(t *testing.T) {
		deps, _, _ := testDependencies()
		registerUser(t, deps, `{"email":"jo@school.org","password":"pw","name":"Jo","user_type":"teacher"}`)

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"email":"jo@school.org","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password", resp["error"])
	})

	t.Run("unknown email", func(t *testing.T) {
		deps, _, _ := testDependencies()

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"email":"ghost@school.org","password":"pw"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password", resp["error"])
	})

	t.Run("missing credentials", func(t *testing.T) {
		deps, _, _ := testDependencies()

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"email":"jo@school.org"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp["error"], "Email and password are required")
	})
}

func TestHandleLogin_Phone(t *testing.T) {
	seedParent := func(users *memUserStore, active bool) {
		users.users["parent-1"] = &models.User{
			UserID:      "parent-1",
			Name:        "Pat",
			UserType:    "parent",
			PhoneNumber: "5551234567",
			IsActive:    active,
		}
	}

	t.Run("successful phone login normalizes formatting", func(t *testing.T) {
		deps, users, _ := testDependencies()
		seedParent(users, true)

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"phone_number":"+1 (555) 123-4567"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, resp["success"])
		assert.NotEmpty(t, resp["token"])
		user := resp["user"].(map[string]any)
		assert.Equal(t, "5551234567", user["phone_number"])
	})

	t.Run("unknown phone", func(t *testing.T) {
		deps, _, _ := testDependencies()

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"phone_number":"5550000000"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "PHONE_NOT_FOUND", resp["error"])
	})

	t.Run("non-parent user", func(t *testing.T) {
		deps, users, _ := testDependencies()
		users.users["teacher-1"] = &models.User{
			UserID:      "teacher-1",
			UserType:    "teacher",
			PhoneNumber: "5551234567",
			IsActive:    true,
		}

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"phone_number":"5551234567"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "NOT_PARENT_USER", resp["error"])
	})

	t.Run("deactivated account", func(t *testing.T) {
		deps, users, _ := testDependencies()
		seedParent(users, false)

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"phone_number":"5551234567"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", resp["error"])
	})

	t.Run("invalid format", func(t *testing.T) {
		deps, _, _ := testDependencies()

		w, resp := postJSON(t, deps.handleLogin, "/auth/login", `{"phone_number":"12345"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid phone number format", resp["error"])
	})
}

func TestHandleVerify(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		deps, _, _ := testDependencies()
		token, err := auth.GenerateToken(&models.User{
			UserID:   "user-1",
			Email:    "jo@school.org",
			UserType: "teacher",
		}, deps.TokenSecret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		deps.handleVerify(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["valid"])
		user := resp["user"].(map[string]any)
		assert.Equal(t, "user-1", user["user_id"])
	})

	t.Run("no token", func(t *testing.T) {
		deps, _, _ := testDependencies()

		req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
		w := httptest.NewRecorder()
		deps.handleVerify(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "No token provided", resp["error"])
	})

	t.Run("invalid token", func(t *testing.T) {
		deps, _, _ := testDependencies()

		req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		deps.handleVerify(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["valid"])
	})
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", normalizePhone("5551234567"))
	assert.Equal(t, "5551234567", normalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "5551234567", normalizePhone("15551234567"))
	assert.Equal(t, "25551234567", normalizePhone("25551234567"))
	assert.Equal(t, "", normalizePhone("12345"))
	assert.Equal(t, "", normalizePhone(""))
}
