package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/droneops/loglift/pkg/upload"
)

// defaultTaskID namespaces form uploads submitted without a task ID.
const defaultTaskID = "undefined_task"

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleIndex serves the upload form.
func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderTemplate(w, http.StatusOK, "index.html", indexData{})
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": "configured",
	})
}

// handleUpload accepts a multipart log file, spools it to a temp file, and
// pushes it to remote storage under a task-scoped key.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) ||
			strings.Contains(err.Error(), "request body too large") {
			s.renderTemplate(w, http.StatusRequestEntityTooLarge, "index.html",
				indexData{Error: fmt.Sprintf("File too large (limit %d bytes)", s.cfg.MaxUploadBytes)})

			return
		}

		s.renderTemplate(w, http.StatusBadRequest, "index.html",
			indexData{Error: "Invalid upload request"})

		return
	}

	file, header, err := r.FormFile("logfile")
	if err != nil {
		s.renderTemplate(w, http.StatusBadRequest, "index.html",
			indexData{Error: "No file selected"})

		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		s.renderTemplate(w, http.StatusBadRequest, "index.html",
			indexData{Error: "No file selected"})

		return
	}

	taskID := r.FormValue("task_id")
	if taskID == "" {
		taskID = defaultTaskID
	}

	spoolPath, err := s.spool(file, header.Filename)
	if err != nil {
		s.log.WithError(err).Error("Failed to spool uploaded file")
		s.renderTemplate(w, http.StatusInternalServerError, "index.html",
			indexData{Error: "Failed to store uploaded file"})

		return
	}
	defer func() { _ = os.Remove(spoolPath) }()

	key := upload.FormKey(s.keyPrefix, taskID, header.Filename)

	url, err := s.uploader.UploadFile(r.Context(), spoolPath, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Upload failed")
		s.renderTemplate(w, http.StatusBadGateway, "index.html",
			indexData{Error: "Upload to storage failed, check server logs"})

		return
	}

	s.log.WithFields(logrus.Fields{
		"task_id": taskID,
		"key":     key,
		"size":    header.Size,
	}).Info("Form upload completed")

	s.renderTemplate(w, http.StatusOK, "success.html", successData{
		Filename: header.Filename,
		TaskID:   taskID,
		Key:      key,
		URL:      url,
	})
}

// spool writes the uploaded file to a uniquely named temp file and returns
// its path. The caller removes the file when done.
func (s *server) spool(file io.Reader, filename string) (string, error) {
	name := uuid.NewString() + "_" + upload.SanitizeFilename(filename)
	path := filepath.Join(os.TempDir(), name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating spool file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)

		return "", fmt.Errorf("writing spool file: %w", err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(path)

		return "", fmt.Errorf("closing spool file: %w", err)
	}

	return path, nil
}
