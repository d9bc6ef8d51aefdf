package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droneops/loglift/pkg/config"
)

// fakeUploader records the uploads it receives.
type fakeUploader struct {
	uploadErr error
	gotKey    string
	gotData   []byte
}

func (f *fakeUploader) Preflight(_ context.Context) error {
	return nil
}

func (f *fakeUploader) UploadFile(_ context.Context, localPath, key string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}

	f.gotKey = key
	f.gotData = data

	return "https://bucket.example.com/" + key, nil
}

func newTestServer(t *testing.T, cfg *config.WebConfig, uploader *fakeUploader) http.Handler {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	srv := &server{
		log:       log,
		cfg:       cfg,
		keyPrefix: "logs",
		uploader:  uploader,
	}

	return srv.buildRouter()
}

func defaultWebConfig() *config.WebConfig {
	return &config.WebConfig{
		Listen:         ":0",
		MaxUploadBytes: config.DefaultMaxUploadBytes,
	}
}

// multipartBody builds a multipart form with an optional file part.
func multipartBody(t *testing.T, taskID, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if taskID != "" {
		require.NoError(t, mw.WriteField("task_id", taskID))
	}

	if filename != "" {
		part, err := mw.CreateFormFile("logfile", filename)
		require.NoError(t, err)

		_, err = io.Copy(part, bytes.NewReader(content))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestHandleIndex(t *testing.T) {
	t.Parallel()

	router := newTestServer(t, defaultWebConfig(), &fakeUploader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
	assert.Contains(t, rec.Body.String(), `name="logfile"`)
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	router := newTestServer(t, defaultWebConfig(), &fakeUploader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","storage":"configured"}`, rec.Body.String())
}

func TestHandleUpload(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		uploader := &fakeUploader{}
		router := newTestServer(t, defaultWebConfig(), uploader)

		content := []byte("binary flight log")
		body, contentType := multipartBody(t, "task-9", "flight.bin", content)

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "logs/task-9_flight.bin")
		assert.Equal(t, "logs/task-9_flight.bin", uploader.gotKey)
		assert.Equal(t, content, uploader.gotData)
	})

	t.Run("missing task id falls back to default", func(t *testing.T) {
		t.Parallel()

		uploader := &fakeUploader{}
		router := newTestServer(t, defaultWebConfig(), uploader)

		body, contentType := multipartBody(t, "", "flight.bin", []byte("data"))

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "logs/undefined_task_flight.bin", uploader.gotKey)
	})

	t.Run("filename sanitized in key", func(t *testing.T) {
		t.Parallel()

		uploader := &fakeUploader{}
		router := newTestServer(t, defaultWebConfig(), uploader)

		body, contentType := multipartBody(t, "t1", "../secret log.bin", []byte("data"))

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "logs/t1_secret_log.bin", uploader.gotKey)
	})

	t.Run("no file selected", func(t *testing.T) {
		t.Parallel()

		router := newTestServer(t, defaultWebConfig(), &fakeUploader{})

		body, contentType := multipartBody(t, "task-9", "", nil)

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "No file selected")
	})

	t.Run("body over limit", func(t *testing.T) {
		t.Parallel()

		cfg := defaultWebConfig()
		cfg.MaxUploadBytes = 512

		router := newTestServer(t, cfg, &fakeUploader{})

		body, contentType := multipartBody(t, "task-9", "flight.bin", make([]byte, 4096))

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		t.Parallel()

		uploader := &fakeUploader{uploadErr: fmt.Errorf("connection refused")}
		router := newTestServer(t, defaultWebConfig(), uploader)

		body, contentType := multipartBody(t, "task-9", "flight.bin", []byte("data"))

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Upload to storage failed")
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	cfg := defaultWebConfig()
	cfg.RateLimit = config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
	}

	router := newTestServer(t, cfg, &fakeUploader{})

	send := func() int {
		body, contentType := multipartBody(t, "t1", "flight.bin", []byte("data"))

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "203.0.113.10:52431"

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
