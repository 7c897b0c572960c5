package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"excel-analyzer-go/internal/models"
)

const totpIssuer = "Excel Analyzer"

// Setup2FAHandler generates a new TOTP secret and QR code for the
// authenticated user. Nothing is persisted until Enable2FAHandler
// verifies a code against the secret.
func (h *Handler) Setup2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	caller, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.Users.GetUser(r.Context(), caller.ID)
	if err != nil {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}

	secret, qrCode, err := models.NewTOTPEnrollment(user.Email, totpIssuer)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "Failed to generate secret")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"secret":  secret,
		"qr_code": qrCode,
		"issuer":  totpIssuer,
		"account": user.Email,
	})
}

// Enable2FAHandler verifies the TOTP code and enables 2FA.
func (h *Handler) Enable2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	caller, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Secret string `json:"secret"`
		Code   string `json:"code"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if !models.VerifyTOTPCode(req.Secret, req.Code) {
		writeMsg(w, http.StatusUnauthorized, "Invalid verification code")
		return
	}

	if err := h.Users.UpdateUser2FA(r.Context(), caller.ID, req.Secret, true); err != nil {
		log.Printf("Failed to enable 2FA for user %d: %v", caller.ID, err)
		writeMsg(w, http.StatusInternalServerError, "Failed to enable 2FA")
		return
	}

	h.logActivity(r, caller.ID, models.ActionProfileUpdate, "Two-factor authentication enabled",
		map[string]any{"changes": []string{"2fa"}})

	writeMsg(w, http.StatusOK, "2FA enabled successfully")
}

// Disable2FAHandler disables 2FA for the authenticated user. Admins
// cannot disable their own 2FA.
func (h *Handler) Disable2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	caller, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if caller.Role == models.RoleAdmin {
		writeMsg(w, http.StatusForbidden, "Admins cannot disable their own 2FA")
		return
	}

	if err := h.Users.Disable2FA(r.Context(), caller.ID); err != nil {
		log.Printf("Failed to disable 2FA for user %d: %v", caller.ID, err)
		writeMsg(w, http.StatusInternalServerError, "Failed to disable 2FA")
		return
	}

	h.logActivity(r, caller.ID, models.ActionProfileUpdate, "Two-factor authentication disabled",
		map[string]any{"changes": []string{"2fa"}})

	writeMsg(w, http.StatusOK, "2FA disabled successfully")
}
