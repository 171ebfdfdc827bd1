package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
		delete(f.ttls, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) records() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkoutRequest(body string, key string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/orders", "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func TestRouteRuleSelection(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		pattern  string
		ttl      time.Duration
		required bool
		ok       bool
	}{
		{"checkout", http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true, true},
		{"accept", http.MethodPost, "/api/v1/orders/{orderId}/accept", defaultIdempotencyTTL, false, true},
		{"reject", http.MethodPost, "/api/v1/orders/{orderId}/reject", defaultIdempotencyTTL, false, true},
		{"cancel", http.MethodPatch, "/api/v1/orders/{orderId}/cancel", criticalIdempotencyTTL, false, true},
		{"status", http.MethodPatch, "/api/v1/orders/{orderId}/status", defaultIdempotencyTTL, false, true},
		{"review", http.MethodPost, "/api/v1/reviews", defaultIdempotencyTTL, false, true},
		{"list orders", http.MethodGet, "/api/v1/orders", 0, false, false},
		{"cart add", http.MethodPost, "/api/v1/cart/items", 0, false, false},
	}

	for _, tt := range tests {
		rule, ok := routeRule(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if !ok {
			continue
		}
		if rule.ttl != tt.ttl {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.ttl, rule.ttl)
		}
		if rule.required != tt.required {
			t.Fatalf("%s: expected required=%v got %v", tt.name, tt.required, rule.required)
		}
	}
}

func TestIdempotencyRequiresHeaderOnCheckout(t *testing.T) {
	store := newFakeStore()
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	Idempotency(store, 0, nil)(handler).ServeHTTP(resp, checkoutRequest(`{}`, ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatal("handler should not run without idempotency key")
	}
}

func TestIdempotencyOptionalRoutesPassThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	mw := Idempotency(store, 0, nil)(handler)
	for range 2 {
		req := requestWithPattern(http.MethodPost, "/api/v1/reviews", "/api/v1/reviews", strings.NewReader(`{}`))
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice got %d", calls)
	}
	if store.records() != 0 {
		t.Fatalf("expected nothing stored got %d records", store.records())
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mw := Idempotency(store, 48*time.Hour, nil)(handler)

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, checkoutRequest(`{"payment_method":"cod"}`, "abc"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, checkoutRequest(`{"payment_method":"cod"}`, "abc"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatal("expected content-type header preserved")
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay marker header")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	stored := store.IdempotencyKey(strings.Join([]string{uuid.Nil.String(), http.MethodPost, "/api/v1/orders"}, "|"), "abc")
	if got := store.ttls[stored]; got != 48*time.Hour {
		t.Fatalf("expected configured ttl got %v", got)
	}
	if _, locked := store.data[stored+":lock"]; locked {
		t.Fatal("expected in-flight lock released")
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, 0, nil)(handler)

	for range 2 {
		req := checkoutRequest(`{}`, "shared")
		req = req.WithContext(WithIdentity(req.Context(), uuid.New(), "vendor"))
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected each user to reach the handler, got %d calls", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, 0, nil)(handler)

	mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{"foo":"bar"}`, "xyz"))

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, checkoutRequest(`{"foo":"diff"}`, "xyz"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mw := Idempotency(store, 0, nil)(handler)

	mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "retry"))
	mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "retry"))

	if calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", calls)
	}
	if store.records() != 0 {
		t.Fatalf("expected no stored records got %d", store.records())
	}
}

func TestIdempotencySkipsRetryableOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		err    *pkgerrors.Error
		stored bool
	}{
		{name: "rate limited", err: pkgerrors.New(pkgerrors.CodeRateLimit, "slow down")},
		{name: "concurrent update", err: pkgerrors.New(pkgerrors.CodeConcurrentUpdate, "cart changed during checkout, review it and retry")},
		{name: "empty cart", err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"), stored: true},
		{name: "insufficient stock", err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 2 left"), stored: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			var calls int
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				responses.WriteError(r.Context(), nil, w, tt.err)
			})
			mw := Idempotency(store, 0, nil)(handler)

			mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "outcome"))
			mw.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "outcome"))

			wantCalls, wantRecords := 2, 0
			if tt.stored {
				wantCalls, wantRecords = 1, 1
			}
			if calls != wantCalls {
				t.Fatalf("expected %d handler calls got %d", wantCalls, calls)
			}
			if store.records() != wantRecords {
				t.Fatalf("expected %d stored records got %d", wantRecords, store.records())
			}
		})
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	key := store.IdempotencyKey(strings.Join([]string{uuid.Nil.String(), http.MethodPost, "/api/v1/orders"}, "|"), "busy")
	_, _ = store.SetNX(context.Background(), key+":lock", "x", time.Minute)

	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	resp := httptest.NewRecorder()
	Idempotency(store, 0, nil)(handler).ServeHTTP(resp, checkoutRequest(`{}`, "busy"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler should not run while key is locked")
	}
}
