package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"excel-analyzer-go/internal/models"
	"excel-analyzer-go/internal/store"
)

const maxLoginAttempts = 10

type contextKey string

const authUserKey contextKey = "auth_user"

// AuthUser is the verified identity attached to the request context by
// RequireAuth. Handlers never read tokens themselves.
type AuthUser struct {
	ID        int
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// CurrentUser returns the authenticated identity for the request.
func CurrentUser(r *http.Request) (AuthUser, bool) {
	user, ok := r.Context().Value(authUserKey).(AuthUser)
	return user, ok
}

// RequireAuth verifies the Bearer token and attaches the caller
// identity to the request context.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			writeMsg(w, http.StatusUnauthorized, "No token or malformed token, authorization denied")
			return
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := models.ParseAuthToken(h.JWTSecret, raw)
		if err != nil {
			writeMsg(w, http.StatusUnauthorized, "Token is not valid")
			return
		}

		// Revocation check is best-effort: a Redis outage must not log
		// everyone out.
		revoked, err := h.Sessions.IsTokenRevoked(r.Context(), claims.ID)
		if err != nil {
			log.Printf("warning: token revocation check failed: %v", err)
		} else if revoked {
			writeMsg(w, http.StatusUnauthorized, "Token is not valid")
			return
		}

		user := AuthUser{
			ID:        claims.UserID,
			Role:      claims.Role,
			TokenID:   claims.ID,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		ctx := context.WithValue(r.Context(), authUserKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin restricts a route to admin callers. Must run inside
// RequireAuth.
func (h *Handler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r)
		if !ok || user.Role != models.RoleAdmin {
			writeMsg(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	}
}

// RegisterHandler creates an account and returns a fresh auth token.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeMsg(w, http.StatusBadRequest, "All fields are required")
		return
	}

	if _, err := h.Users.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeMsg(w, http.StatusBadRequest, "User already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeMsg(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user, err := h.Users.CreateUser(r.Context(), req.Name, req.Email, req.Password, models.RoleUser)
	if err != nil {
		log.Printf("Failed to create user: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.logActivity(r, user.ID, models.ActionLogin, "User registered successfully", nil)

	token, err := models.NewAuthToken(h.JWTSecret, user.ID, user.Role)
	if err != nil {
		log.Printf("Failed to sign token: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// LoginHandler checks credentials and returns an auth token, or a 2FA
// challenge when the account has TOTP enabled.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeMsg(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	// Throttling is best-effort: a Redis outage never blocks login.
	throttleKey := fmt.Sprintf("%s|%s", req.Email, clientIP(r))
	attempts, err := h.Sessions.RegisterLoginFailure(r.Context(), throttleKey)
	if err != nil {
		log.Printf("warning: login throttle unavailable: %v", err)
	} else if attempts > maxLoginAttempts {
		loginsTotal.WithLabelValues("throttled").Inc()
		writeMsg(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	user, err := h.Users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if user.IsBlocked() {
		loginsTotal.WithLabelValues("blocked").Inc()
		writeMsg(w, http.StatusForbidden, "Your account has been blocked. Please contact support.")
		return
	}

	if !user.CheckPassword(req.Password) {
		loginsTotal.WithLabelValues("failure").Inc()
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if err := h.Sessions.ClearLoginFailures(r.Context(), throttleKey); err != nil {
		log.Printf("warning: failed to clear login failures: %v", err)
	}

	if user.TOTPEnabled {
		writeJSON(w, http.StatusOK, map[string]any{
			"requires_2fa": true,
			"user_id":      user.ID,
		})
		return
	}

	h.finishLogin(w, r, user)
}

// Verify2FALoginHandler completes a login for an account with TOTP
// enabled.
func (h *Handler) Verify2FALoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		UserID int    `json:"user_id"`
		Code   string `json:"code"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Users.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if user.IsBlocked() {
		writeMsg(w, http.StatusForbidden, "Your account has been blocked. Please contact support.")
		return
	}

	if !user.TOTPEnabled || !models.VerifyTOTPCode(user.TOTPSecret, req.Code) {
		writeMsg(w, http.StatusUnauthorized, "Invalid verification code")
		return
	}

	h.finishLogin(w, r, user)
}

func (h *Handler) finishLogin(w http.ResponseWriter, r *http.Request, user models.User) {
	h.logActivity(r, user.ID, models.ActionLogin, "User logged in successfully", nil)

	token, err := models.NewAuthToken(h.JWTSecret, user.ID, user.Role)
	if err != nil {
		log.Printf("Failed to sign token: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Login failed")
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// LogoutHandler revokes the presented token until its natural expiry.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ttl := time.Until(user.ExpiresAt)
	if err := h.Sessions.RevokeToken(r.Context(), user.TokenID, ttl); err != nil {
		log.Printf("warning: failed to revoke token: %v", err)
	}

	h.logActivity(r, user.ID, models.ActionLogout, "User logged out", nil)

	writeMsg(w, http.StatusOK, "Logged out")
}
