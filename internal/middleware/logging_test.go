package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// captureLogs routes the default logger into a buffer of JSON records
// for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &rec); err != nil {
		t.Fatalf("decode log record %q: %v", lines[len(lines)-1], err)
	}
	return rec
}

func TestLoggerRecordsRequest(t *testing.T) {
	buf := captureLogs(t)
	h := chimw.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodPost, "/post/missing/comments", nil)
	req.RemoteAddr = "198.51.100.4:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	rec := lastRecord(t, buf)
	checks := map[string]any{
		"level":  "INFO",
		"method": "POST",
		"path":   "/post/missing/comments",
		"status": float64(404),
		"remote": "198.51.100.4",
	}
	for k, want := range checks {
		if rec[k] != want {
			t.Errorf("%s: got %v, want %v", k, rec[k], want)
		}
	}
	if id, _ := rec["request_id"].(string); id == "" {
		t.Error("request_id should be logged when RequestID runs first")
	}
}

func TestLoggerWarnsOnServerError(t *testing.T) {
	buf := captureLogs(t)
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := lastRecord(t, buf)
	if rec["level"] != "WARN" {
		t.Errorf("level: got %v, want WARN", rec["level"])
	}
	if _, ok := rec["request_id"]; ok {
		t.Error("request_id should be absent without RequestID")
	}
}

func TestLoggerImplicitOK(t *testing.T) {
	buf := captureLogs(t)
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
		w.Write([]byte(", world"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/about", nil))

	if rr.Body.String() != "hello, world" {
		t.Errorf("body: got %q", rr.Body.String())
	}
	rec := lastRecord(t, buf)
	if rec["status"] != float64(200) || rec["bytes"] != float64(12) {
		t.Errorf("logged status/bytes: got %v/%v, want 200/12", rec["status"], rec["bytes"])
	}
}

func TestResponseWriterUnwrap(t *testing.T) {
	inner := httptest.NewRecorder()
	if wrap(inner).Unwrap() != inner {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rw := wrap(httptest.NewRecorder())

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	rw.Write([]byte("x"))

	if rw.statusCode != http.StatusCreated {
		t.Errorf("statusCode: got %d, want 201", rw.statusCode)
	}
}

func TestWrapReusesResponseWriter(t *testing.T) {
	first := wrap(httptest.NewRecorder())
	if second := wrap(first); second != first {
		t.Error("wrap should reuse an existing *responseWriter")
	}
	if first.statusCode != http.StatusOK || first.written {
		t.Errorf("fresh wrapper: got status %d written %v", first.statusCode, first.written)
	}
}
