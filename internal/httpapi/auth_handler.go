package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"learning_assist/internal/auth"
	"learning_assist/internal/models"
	"learning_assist/internal/storage"
	"learning_assist/internal/utils"
)

// userResponse is the public view of a user returned by the auth endpoints.
type userResponse struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Name        string   `json:"name"`
	UserType    string   `json:"user_type"`
	ClassAccess []string `json:"class_access"`
	SchoolID    string   `json:"school_id"`
	CreatedAt   string   `json:"created_at,omitempty"`
	LastLogin   string   `json:"last_login,omitempty"`
}

func publicUser(u *models.User) userResponse {
	resp := userResponse{
		UserID:      u.UserID,
		Email:       u.Email,
		Name:        u.Name,
		UserType:    u.UserType,
		ClassAccess: u.ClassAccess,
		SchoolID:    u.SchoolID,
	}
	if resp.ClassAccess == nil {
		resp.ClassAccess = []string{}
	}
	return resp
}

// handleRegister serves POST /auth/register.
func (deps *Dependencies) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	for _, field := range []string{"email", "password", "name", "user_type"} {
		if _, ok := body[field]; !ok {
			utils.RespondWithError(w, http.StatusBadRequest, "Missing required field: "+field)
			return
		}
	}

	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	name, _ := body["name"].(string)
	userType, _ := body["user_type"].(string)

	passwordHash, salt, err := auth.HashPassword(password)
	if err != nil {
		deps.logger.Error("failed to hash password", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:       uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Salt:         salt,
		Name:         strings.TrimSpace(name),
		UserType:     userType,
		ClassAccess:  stringList(body["class_access"]),
		SchoolID:     stringField(body, "school_id"),
		PhoneNumber:  stringField(body, "phone_number"),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := deps.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			utils.RespondWithError(w, http.StatusConflict, "Email already registered")
			return
		}
		deps.logger.Error("failed to create user", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	token, err := auth.GenerateToken(user, deps.TokenSecret)
	if err != nil {
		deps.logger.Error("failed to generate token", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	resp := publicUser(user)
	resp.CreatedAt = now.Format(time.RFC3339)
	utils.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"user":    resp,
		"token":   token,
		"message": "User registered successfully",
	})
}

// handleLogin serves POST /auth/login. A body carrying only phone_number
// selects the parent phone-login flow; otherwise email and password are
// required.
func (deps *Dependencies) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	_, hasPhone := body["phone_number"]
	_, hasEmail := body["email"]
	_, hasPassword := body["password"]
	if hasPhone && !hasEmail && !hasPassword {
		deps.phoneLogin(w, r, body)
		return
	}

	if !hasEmail || !hasPassword {
		utils.RespondWithError(w, http.StatusBadRequest,
			"Email and password are required for standard login, or phone_number for parent login")
		return
	}

	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := deps.Users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		deps.logger.Error("failed to look up user", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !auth.VerifyPassword(password, user.PasswordHash, user.Salt) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := auth.GenerateToken(user, deps.TokenSecret)
	if err != nil {
		deps.logger.Error("failed to generate token", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	now := time.Now().UTC()
	if err := deps.Users.UpdateLastLogin(r.Context(), user.UserID, now); err != nil {
		deps.logger.Warn("failed to update last login", "user_id", user.UserID, "error", err)
	}

	resp := publicUser(user)
	resp.LastLogin = now.Format(time.RFC3339)
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"user":    resp,
		"token":   token,
		"message": "Login successful",
	})
}

// phoneLogin authenticates a parent by phone number alone.
func (deps *Dependencies) phoneLogin(w http.ResponseWriter, r *http.Request, body map[string]any) {
	phone, _ := body["phone_number"].(string)
	if strings.TrimSpace(phone) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	clean := normalizePhone(phone)
	if clean == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	user, err := deps.Users.GetByPhone(r.Context(), clean)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithJSON(w, http.StatusNotFound, map[string]any{
				"success": false,
				"message": "Phone number not found. Please contact your school administrator to register your phone number.",
				"error":   "PHONE_NOT_FOUND",
			})
			return
		}
		deps.logger.Error("failed to look up user by phone", "error", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Internal server error",
			"message": "An error occurred during login. Please try again.",
		})
		return
	}

	if user.UserType != "parent" {
		utils.RespondWithJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"message": "This phone number is not registered for parent access.",
			"error":   "NOT_PARENT_USER",
		})
		return
	}

	if !user.IsActive {
		utils.RespondWithJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"message": "This account has been deactivated. Please contact your school administrator.",
			"error":   "ACCOUNT_DEACTIVATED",
		})
		return
	}

	token, err := auth.GenerateToken(user, deps.TokenSecret)
	if err != nil {
		deps.logger.Error("failed to generate token", "error", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Internal server error",
			"message": "An error occurred during login. Please try again.",
		})
		return
	}

	now := time.Now().UTC()
	if err := deps.Users.UpdateLastLogin(r.Context(), user.UserID, now); err != nil {
		deps.logger.Warn("failed to update last login", "user_id", user.UserID, "error", err)
	}

	resp := publicUser(user)
	resp.Email = ""
	resp.PhoneNumber = clean
	resp.LastLogin = now.Format(time.RFC3339)
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    resp,
		"token":   token,
		"message": "Login successful",
	})
}

// handleVerify serves GET /auth/verify: it validates the bearer token and
// returns the embedded user claims.
func (deps *Dependencies) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		utils.RespondWithError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	claims, err := auth.VerifyToken(strings.TrimPrefix(header, "Bearer "), deps.TokenSecret)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": "Invalid token",
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": map[string]any{
			"user_id":   claims.UserID,
			"email":     claims.Email,
			"user_type": claims.UserType,
		},
	})
}

// normalizePhone strips formatting and reduces the number to 10 digits,
// dropping a leading country code 1. It returns "" when the digit count is
// not 10 or 11.
func normalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	clean := digits.String()
	switch len(clean) {
	case 10:
		return clean
	case 11:
		if strings.HasPrefix(clean, "1") {
			return clean[1:]
		}
		return clean
	}
	return ""
}

func stringField(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
