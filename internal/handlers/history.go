package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"excel-analyzer-go/internal/models"
	"excel-analyzer-go/internal/store"
)

// ListHistoryHandler returns the caller's upload history, newest first.
func (h *Handler) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	records, err := h.History.ListHistory(r.Context(), user.ID)
	if err != nil {
		log.Printf("Failed to list history for user %d: %v", user.ID, err)
		writeMsg(w, http.StatusInternalServerError, "Error fetching history")
		return
	}

	if records == nil {
		records = []models.UploadHistory{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ClearHistoryHandler deletes every record the caller owns. Clearing an
// already-empty history succeeds with a count of 0.
func (h *Handler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count, err := h.History.ClearHistory(r.Context(), user.ID)
	if err != nil {
		log.Printf("Failed to clear history for user %d: %v", user.ID, err)
		writeMsg(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	h.logActivity(r, user.ID, models.ActionFileDelete,
		fmt.Sprintf("History cleared: %d records", count),
		map[string]any{"deleted": count})

	writeJSON(w, http.StatusOK, map[string]any{
		"msg":     "History cleared",
		"deleted": count,
	})
}

// DeleteHistoryHandler deletes one record by id. A record owned by
// another user reports the same not-found as a record that never
// existed.
func (h *Handler) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := historyID(r.URL.Path)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	if err := h.History.DeleteHistory(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Entry not found")
			return
		}
		log.Printf("Failed to delete history %d for user %d: %v", id, user.ID, err)
		writeMsg(w, http.StatusInternalServerError, "Failed to delete entry")
		return
	}

	h.logActivity(r, user.ID, models.ActionFileDelete,
		fmt.Sprintf("History entry deleted: %d", id),
		map[string]any{"historyId": id})

	writeMsg(w, http.StatusOK, "Entry deleted")
}

// UpdateChartHandler stores the chart selection a client made for one
// of its history records.
func (h *Handler) UpdateChartHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := historyID(r.URL.Path)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	var cfg models.ChartConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.History.UpdateChartConfig(r.Context(), user.ID, id, cfg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Entry not found")
			return
		}
		log.Printf("Failed to update chart config %d for user %d: %v", id, user.ID, err)
		writeMsg(w, http.StatusInternalServerError, "Failed to save chart configuration")
		return
	}

	writeMsg(w, http.StatusOK, "Chart configuration saved")
}

// historyID pulls the record id out of /api/history/{id} or
// /api/history/{id}/chart.
func historyID(path string) (int, error) {
	rest := strings.TrimPrefix(path, "/api/history/")
	rest = strings.TrimSuffix(rest, "/chart")
	return strconv.Atoi(rest)
}
