package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist/pkg/logging"
)

func bufferLogger(buf *bytes.Buffer) *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewJSONHandler(buf, nil))}
}

func TestRequestLoggerCapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(bufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/doctors/Nobody", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"path":"/doctors/Nobody"`)
}

func TestRequestLoggerPassesResponseThrough(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(bufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(body))
	assert.Contains(t, buf.String(), `"bytes":16`)
}
