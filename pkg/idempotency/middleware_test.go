package idempotency

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

type memoryKeyRepository struct {
	mu         sync.Mutex
	keys       map[string]*Key
	acquireErr error
	released   []string
}

func newMemoryKeyRepository() *memoryKeyRepository {
	return &memoryKeyRepository{keys: map[string]*Key{}}
}

func (r *memoryKeyRepository) AcquireLock(_ context.Context, key *Key) (*Key, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acquireErr != nil {
		return nil, false, r.acquireErr
	}
	lookup := key.ServiceID + "/" + key.Key
	if existing, ok := r.keys[lookup]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *key
	r.keys[lookup] = &cp
	return key, true, nil
}

func (r *memoryKeyRepository) StoreResponse(_ context.Context, id string, code int, body []byte, headers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.ID == id {
			now := time.Now()
			k.ResponseCode, k.ResponseBody, k.ResponseHeaders, k.CompletedAt = code, body, headers, &now
		}
	}
	return nil
}

func (r *memoryKeyRepository) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, id)
	for lookup, k := range r.keys {
		if k.ID == id && !k.IsCompleted() {
			delete(r.keys, lookup)
		}
	}
	return nil
}

func (r *memoryKeyRepository) EnsureIndexes(context.Context) error { return nil }

type outcomeRecorder struct {
	outcomes []string
}

func (r *outcomeRecorder) RecordIdempotency(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

type fixture struct {
	router   *gin.Engine
	repo     *memoryKeyRepository
	recorder *outcomeRecorder
	calls    int
	status   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{repo: newMemoryKeyRepository(), recorder: &outcomeRecorder{}, status: http.StatusCreated}
	config := DefaultConfig("fulfillment-service", f.repo, logging.NewNop())
	config.Metrics = f.recorder

	f.router = gin.New()
	f.router.Use(middleware.RequestID(), Middleware(config))
	f.router.POST("/orders", func(c *gin.Context) {
		f.calls++
		c.Header("Location", "/orders/ORD-1")
		c.JSON(f.status, gin.H{"data": gin.H{"orderId": "ORD-1", "call": f.calls}})
	})
	f.router.GET("/orders", func(c *gin.Context) {
		f.calls++
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})
	return f
}

func (f *fixture) do(method, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestMiddleware_ReplaysCompletedRequest(t *testing.T) {
	f := newFixture(t)

	first := f.do(http.MethodPost, "order-123", `{"qty":2}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(http.MethodPost, "order-123", `{"qty":2}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, "/orders/ORD-1", second.Header().Get("Location"))
	assert.NotEqual(t, first.Header().Get(middleware.HeaderRequestID), second.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, []string{OutcomeMiss, OutcomeHit}, f.recorder.outcomes)
}

func TestMiddleware_PassThrough(t *testing.T) {
	tests := []struct {
		name   string
		method string
		key    string
	}{
		{name: "no key", method: http.MethodPost},
		{name: "read request", method: http.MethodGet, key: "order-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.do(tt.method, tt.key, `{}`)
			f.do(tt.method, tt.key, `{}`)
			assert.Equal(t, 2, f.calls)
			assert.Empty(t, f.recorder.outcomes)
		})
	}
}

func TestMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		key    string
		body   string
		status int
		code   string
	}{
		{
			name:   "invalid key",
			key:    "order 123!",
			body:   `{}`,
			status: http.StatusBadRequest,
			code:   CodeKeyInvalid,
		},
		{
			name:   "key too long",
			key:    strings.Repeat("k", DefaultMaxKeyLength+1),
			body:   `{}`,
			status: http.StatusBadRequest,
			code:   CodeKeyInvalid,
		},
		{
			name: "different body",
			setup: func(f *fixture) {
				f.do(http.MethodPost, "order-123", `{"qty":2}`)
			},
			key:    "order-123",
			body:   `{"qty":3}`,
			status: http.StatusUnprocessableEntity,
			code:   CodeParameterMismatch,
		},
		{
			name: "in flight",
			setup: func(f *fixture) {
				f.repo.keys["fulfillment-service/order-123"] = &Key{
					ID:                 "k1",
					Key:                "order-123",
					ServiceID:          "fulfillment-service",
					RequestFingerprint: Fingerprint(http.MethodPost, "/orders", []byte(`{}`)),
					LockedAt:           time.Now(),
				}
			},
			key:    "order-123",
			body:   `{}`,
			status: http.StatusConflict,
			code:   CodeConcurrentRequest,
		},
		{
			name: "storage down",
			setup: func(f *fixture) {
				f.repo.acquireErr = stderrors.New("no reachable servers")
			},
			key:    "order-123",
			body:   `{}`,
			status: http.StatusServiceUnavailable,
			code:   CodeStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			calls := f.calls

			rec := f.do(http.MethodPost, tt.key, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.Equal(t, calls, f.calls)
		})
	}
}

func TestMiddleware_StaleLockIsTakenOver(t *testing.T) {
	f := newFixture(t)
	f.repo.keys["fulfillment-service/order-123"] = &Key{
		ID:                 "k1",
		Key:                "order-123",
		ServiceID:          "fulfillment-service",
		RequestFingerprint: Fingerprint(http.MethodPost, "/orders", []byte(`{}`)),
		LockedAt:           time.Now().Add(-time.Hour),
	}

	rec := f.do(http.MethodPost, "order-123", `{}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, f.calls)
	assert.True(t, f.repo.keys["fulfillment-service/order-123"].IsCompleted())
}

func TestMiddleware_ServerErrorReleasesKey(t *testing.T) {
	f := newFixture(t)
	f.status = http.StatusInternalServerError

	rec := f.do(http.MethodPost, "order-123", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, f.repo.released, 1)
	assert.Empty(t, f.repo.keys)

	f.status = http.StatusCreated
	rec = f.do(http.MethodPost, "order-123", `{}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, f.calls)
}

func TestMiddleware_ClientErrorIsReplayed(t *testing.T) {
	f := newFixture(t)
	f.status = http.StatusConflict

	f.do(http.MethodPost, "order-123", `{}`)
	f.status = http.StatusCreated
	rec := f.do(http.MethodPost, "order-123", `{}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, f.calls)
}
