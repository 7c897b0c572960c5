package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"excel-analyzer-go/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const maxInsightRows = 10

// InsightsHandler asks a chat-completion model to summarize an uploaded
// dataset. Only the column list and the first rows are sent upstream.
func (h *Handler) InsightsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.AI == nil {
		writeMsg(w, http.StatusServiceUnavailable, "AI analysis is not configured")
		return
	}

	var req struct {
		Columns []string     `json:"columns"`
		Data    []models.Row `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if len(req.Columns) == 0 || len(req.Data) == 0 {
		writeMsg(w, http.StatusBadRequest, "Columns and data are required")
		return
	}

	sample := req.Data
	if len(sample) > maxInsightRows {
		sample = sample[:maxInsightRows]
	}
	sampleJSON, err := json.Marshal(sample)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}

	prompt := fmt.Sprintf(`You are a data analyst. Summarize this dataset, highlight patterns, trends, correlations, and outliers.

Columns: %s
Data (first %d rows): %s
Summary:`, strings.Join(req.Columns, ", "), len(sample), sampleJSON)

	resp, err := h.AI.CreateChatCompletion(r.Context(), openai.ChatCompletionRequest{
		Model: h.AIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Printf("AI insights error: %v", err)
		writeMsg(w, http.StatusInternalServerError, "AI analysis failed")
		return
	}

	insights := "AI model did not return a response."
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		insights = resp.Choices[0].Message.Content
	}

	writeJSON(w, http.StatusOK, map[string]string{"insights": insights})
}
