package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func serve(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRequestLoggerEmitsOneEntryPerRequest(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	serve(handler, http.MethodPost, "/api/content/resolve")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "HTTP request" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	fields := entry.ContextMap()
	if fields["method"] != http.MethodPost {
		t.Errorf("unexpected method field %v", fields["method"])
	}
	if fields["path"] != "/api/content/resolve" {
		t.Errorf("unexpected path field %v", fields["path"])
	}
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("unexpected status field %v", fields["status"])
	}
}

func TestRequestLoggerNilLoggerIsPassthrough(t *testing.T) {
	called := false
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	serve(handler, http.MethodGet, "/health")

	if !called {
		t.Error("wrapped handler was not reached")
	}
}

func TestRequestLoggerLogsFirstStatusOnDoubleWriteHeader(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := serve(handler, http.MethodGet, "/ping")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("recorded status %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := logs.All()[0].ContextMap()["status"]; got != int64(http.StatusBadRequest) {
		t.Errorf("logged status %v, want %d", got, http.StatusBadRequest)
	}
}

func TestResponseWriterDefaultsTo200OnWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	if _, err := rw.Write([]byte("body")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !rw.headerWritten || rw.statusCode != http.StatusOK {
		t.Errorf("write did not commit the default status: written=%v code=%d",
			rw.headerWritten, rw.statusCode)
	}
}

func TestResponseWriterKeepsExplicitStatusAcrossWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	if _, err := rw.Write([]byte("queued")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if rw.statusCode != http.StatusAccepted || rec.Code != http.StatusAccepted {
		t.Errorf("status mismatch: wrapper=%d recorder=%d", rw.statusCode, rec.Code)
	}
}

// flushRecorder counts Flush calls so the passthrough is observable.
type flushRecorder struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestRequestLoggerPreservesFlusherForStreaming(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer lost the Flusher interface")
		}
		_, _ = w.Write([]byte("data: chunk\n\n"))
		flusher.Flush()
		flusher.Flush()
	}))

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/content/resolve", nil))

	if rec.flushes != 2 {
		t.Errorf("expected 2 flushes to reach the underlying writer, got %d", rec.flushes)
	}
}

func TestResponseWriterFlushToleratesNonFlusher(t *testing.T) {
	rw := &responseWriter{ResponseWriter: nonFlushingWriter{httptest.NewRecorder()}, statusCode: http.StatusOK}
	rw.Flush()
}

// nonFlushingWriter hides ResponseRecorder's Flush method.
type nonFlushingWriter struct {
	http.ResponseWriter
}
