package handlers

import (
	"log"
	"net/http"

	"excel-analyzer-go/internal/models"
)

// logActivity appends an audit entry for an account action. Audit
// completeness is best-effort: a failed write is logged as a warning and
// swallowed so it can never turn the user-facing action into a failure.
func (h *Handler) logActivity(r *http.Request, userID int, action, description string, metadata map[string]any) {
	entry := models.ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
		IPAddress:   clientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata:    metadata,
	}

	if err := h.Activity.InsertActivity(r.Context(), entry); err != nil {
		log.Printf("warning: failed to record %s activity for user %d: %v", action, userID, err)
	}
}
