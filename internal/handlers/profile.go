package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"excel-analyzer-go/internal/models"
)

// MeHandler returns the authenticated user's profile.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.Users.GetUser(r.Context(), user.ID)
	if err != nil {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateMeHandler updates name, email or password of the authenticated
// user. Only the supplied fields change; the audit entry records which.
func (h *Handler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	caller, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
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

	user, err := h.Users.GetUser(r.Context(), caller.ID)
	if err != nil {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}

	var changes []string
	name, email := user.Name, user.Email
	if req.Name != "" && req.Name != user.Name {
		name = req.Name
		changes = append(changes, "name")
	}
	if req.Email != "" && req.Email != user.Email {
		email = req.Email
		changes = append(changes, "email")
	}

	if len(changes) > 0 {
		if err := h.Users.UpdateUserProfile(r.Context(), user.ID, name, email); err != nil {
			log.Printf("Failed to update profile: %v", err)
			writeMsg(w, http.StatusInternalServerError, "Profile update failed")
			return
		}
	}

	if req.Password != "" {
		newHash, err := models.HashPassword(req.Password)
		if err != nil {
			writeMsg(w, http.StatusInternalServerError, "Profile update failed")
			return
		}
		if err := h.Users.UpdateUserPassword(r.Context(), user.ID, newHash); err != nil {
			log.Printf("Failed to update password: %v", err)
			writeMsg(w, http.StatusInternalServerError, "Profile update failed")
			return
		}
		changes = append(changes, "password")
	}

	if len(changes) > 0 {
		action := models.ActionProfileUpdate
		if len(changes) == 1 && changes[0] == "password" {
			action = models.ActionPasswordChange
		}
		h.logActivity(r, user.ID, action,
			fmt.Sprintf("Profile updated: %s", strings.Join(changes, ", ")),
			map[string]any{"changes": changes})
	}

	writeMsg(w, http.StatusOK, "Profile updated")
}
