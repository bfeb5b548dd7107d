package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

func TestLoggingRecordsDownstreamStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Fatalf("completion log missing downstream status: %s", buf.String())
	}
}

func TestLoggingDefaultsImplicitStatusToOK(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("completion log missing default status: %s", buf.String())
	}
}

func TestLoggingForwardsFlush(t *testing.T) {
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer should expose Flush for streaming handlers")
		}
		flusher.Flush()
	}))

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if !resp.Flushed {
		t.Fatal("flush should reach the underlying writer")
	}
}
