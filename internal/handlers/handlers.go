package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"excel-analyzer-go/internal/store"

	openai "github.com/sashabaranov/go-openai"
)

type Handler struct {
	Users    store.UserStore
	History  store.HistoryStore
	Activity store.ActivityStore
	Sessions store.SessionStore

	JWTSecret []byte

	// AI is nil when no API key is configured; the insights endpoint
	// reports itself unavailable in that case.
	AI      *openai.Client
	AIModel string
}

func NewHandler(users store.UserStore, history store.HistoryStore, activity store.ActivityStore, sessions store.SessionStore, jwtSecret []byte) *Handler {
	return &Handler{
		Users:     users,
		History:   history,
		Activity:  activity,
		Sessions:  sessions,
		JWTSecret: jwtSecret,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMsg sends the {"msg": ...} envelope the web client expects for
// status and error messages.
func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

// clientIP extracts the caller address, checking X-Forwarded-For first
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// Take first IP if multiple
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	// Remove port if present
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
