package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"excel-analyzer-go/internal/models"
)

// === User Management ===

func (h *Handler) AdminGetUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.GetUsers(r.Context())
	if err != nil {
		log.Printf("Failed to get users: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Error fetching users")
		return
	}

	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// AdminBlockUserHandler toggles a user between blocked and user. Admins
// cannot block their own account.
func (h *Handler) AdminBlockUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := CurrentUser(r)

	id, err := adminUserID(r.URL.Path)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	if actor.ID == id {
		writeMsg(w, http.StatusBadRequest, "You cannot block your own account")
		return
	}

	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}

	newRole := models.RoleBlocked
	msg := "User blocked"
	if user.IsBlocked() {
		newRole = models.RoleUser
		msg = "User unblocked"
	}

	if err := h.Users.UpdateUserRole(r.Context(), id, newRole); err != nil {
		log.Printf("Failed to update role for user %d: %v", id, err)
		writeMsg(w, http.StatusInternalServerError, "Error updating user")
		return
	}

	h.logActivity(r, actor.ID, models.ActionAdminAction,
		fmt.Sprintf("%s: %s", msg, user.Email),
		map[string]any{"userId": id, "role": newRole})

	writeMsg(w, http.StatusOK, msg)
}

// AdminDeleteUserHandler removes an account. The user's history rows go
// with it (FK cascade); their audit trail stays.
func (h *Handler) AdminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := CurrentUser(r)

	id, err := adminUserID(r.URL.Path)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		log.Printf("Failed to delete user %d: %v", id, err)
		writeMsg(w, http.StatusInternalServerError, "Error deleting user")
		return
	}

	h.logActivity(r, actor.ID, models.ActionAdminAction,
		fmt.Sprintf("User deleted: %s", user.Email),
		map[string]any{"userId": id, "email": user.Email})

	writeMsg(w, http.StatusOK, "User deleted successfully")
}

// === Platform analytics ===

func (h *Handler) AdminAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	totalUsers, activeUsers, err := h.Users.CountUsers(r.Context())
	if err != nil {
		log.Printf("Failed to count users: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Error fetching analytics")
		return
	}

	totalFiles, err := h.History.CountHistory(r.Context())
	if err != nil {
		log.Printf("Failed to count history: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Error fetching analytics")
		return
	}

	avg, err := h.Sessions.AvgProcessingTime(r.Context())
	if err != nil {
		// Stats live in Redis and are best-effort
		log.Printf("warning: processing time stats unavailable: %v", err)
		avg = 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalUsers":        totalUsers,
		"activeUsers":       activeUsers,
		"totalFiles":        totalFiles,
		"avgProcessingTime": avg.Milliseconds(),
	})
}

// === Activity log browsing ===

func (h *Handler) AdminActivityLogsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.ActivityFilter{
		Action: q.Get("action"),
		Page:   1,
		Limit:  50,
	}

	if v := q.Get("userId"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.UserID = id
		}
	}
	if v := q.Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if v := q.Get("startDate"); v != "" {
		if ts, err := parseQueryTime(v); err == nil {
			filter.StartDate = ts
		}
	}
	if v := q.Get("endDate"); v != "" {
		if ts, err := parseQueryTime(v); err == nil {
			filter.EndDate = ts
		}
	}

	logs, total, err := h.Activity.ListActivity(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list activity logs: %v", err)
		writeMsg(w, http.StatusInternalServerError, "Error fetching activity logs")
		return
	}

	if logs == nil {
		logs = []models.ActivityLog{}
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":        logs,
		"totalPages":  totalPages,
		"currentPage": filter.Page,
		"total":       total,
	})
}

func parseQueryTime(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", v)
}

// adminUserID pulls the user id out of /api/admin/users/{id} or
// /api/admin/users/{id}/block.
func adminUserID(path string) (int, error) {
	rest := strings.TrimPrefix(path, "/api/admin/users/")
	rest = strings.TrimSuffix(rest, "/block")
	return strconv.Atoi(rest)
}
