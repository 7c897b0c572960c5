package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"excel-analyzer-go/internal/models"
	"excel-analyzer-go/internal/parser"
)

// maxUploadBytes bounds the sheet decode step: decoding loads the full
// sheet into memory, so the payload cap keeps it memory-bounded.
const maxUploadBytes = 10 << 20 // 10 MiB

// multipartOverhead is slack for the multipart framing around the file.
const multipartOverhead = 1 << 20

// UploadHandler ingests one Excel file: validate, decode, persist a
// history record, append an audit entry, return columns and rows.
// Nothing is persisted when validation or decoding fails.
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := CurrentUser(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			uploadsTotal.WithLabelValues("rejected").Inc()
			writeMsg(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB.")
			return
		}
		uploadsTotal.WithLabelValues("rejected").Inc()
		writeMsg(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	// Exactly one file per request, counted across all field names.
	fileCount := 0
	for _, parts := range r.MultipartForm.File {
		fileCount += len(parts)
	}
	if fileCount > 1 {
		uploadsTotal.WithLabelValues("rejected").Inc()
		writeMsg(w, http.StatusBadRequest, "Only one file can be uploaded at a time")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		writeMsg(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xls" && ext != ".xlsx" {
		uploadsTotal.WithLabelValues("rejected").Inc()
		writeMsg(w, http.StatusUnsupportedMediaType, "Only Excel files are allowed")
		return
	}

	if header.Size > maxUploadBytes {
		uploadsTotal.WithLabelValues("rejected").Inc()
		writeMsg(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		writeMsg(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	started := time.Now()

	// Decode completes before any persistence step begins.
	columns, rows, err := parser.Parse(data)
	if err != nil {
		log.Printf("Upload decode error for user %d (%s): %v", user.ID, header.Filename, err)
		uploadsTotal.WithLabelValues("decode_error").Inc()
		writeMsg(w, http.StatusInternalServerError, "Error processing file")
		return
	}

	record, err := h.History.CreateHistory(r.Context(), user.ID, header.Filename, columns, rows)
	if err != nil {
		log.Printf("Upload persistence error for user %d (%s): %v", user.ID, header.Filename, err)
		uploadsTotal.WithLabelValues("storage_error").Inc()
		writeMsg(w, http.StatusInternalServerError, "Error processing file")
		return
	}

	elapsed := time.Since(started)
	uploadsTotal.WithLabelValues("accepted").Inc()
	uploadDuration.Observe(elapsed.Seconds())
	if err := h.Sessions.RecordProcessingTime(r.Context(), elapsed); err != nil {
		log.Printf("warning: failed to record processing time: %v", err)
	}

	h.logActivity(r, user.ID, models.ActionFileUpload,
		fmt.Sprintf("File uploaded: %s", header.Filename),
		map[string]any{
			"fileName":  header.Filename,
			"fileSize":  header.Size,
			"columns":   len(columns),
			"rows":      len(rows),
			"historyId": record.ID,
		})

	writeJSON(w, http.StatusOK, map[string]any{
		"columns": columns,
		"data":    rows,
		"message": "File uploaded and processed successfully",
	})
}
