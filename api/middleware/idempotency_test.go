package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

type fakeIdempotencyStore struct {
	records map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: map[string]string{}}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = fmt.Sprint(value)
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "vendia:idempotency:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func orderRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"ord-1"}`))
	}))

	body := `{"product_id":"p-1","quantity":2}`

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest("key-1", body))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusCreated)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest("key-1", body))
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed status = %d, want %d", second.Code, http.StatusCreated)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("replayed content type = %q", ct)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest("key-1", `{"product_id":"p-1"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest("key-1", `{"product_id":"p-2"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("reused key status = %d, want %d", second.Code, http.StatusConflict)
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	handler := Idempotency(newFakeIdempotencyStore(), testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without an idempotency key")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("", `{"product_id":"p-1"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing key status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unguarded request status = %d", rec.Code)
	}
	if len(store.records) != 0 {
		t.Fatalf("unguarded request persisted %d records", len(store.records))
	}
}
