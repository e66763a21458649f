package idempotency

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from the idempotency store
	HeaderReplayed = "Idempotent-Replayed"
)

// Outcomes passed to Recorder
const (
	OutcomeMiss     = "miss"
	OutcomeHit      = "hit"
	OutcomeMismatch = "mismatch"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// headers regenerated per request and never replayed
var skippedHeaders = map[string]bool{
	middleware.HeaderRequestID:     true,
	middleware.HeaderCorrelationID: true,
	HeaderReplayed:                 true,
}

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware replays the stored response for a repeated Idempotency-Key on mutating
// requests. Requests without the header pass through untouched.
func Middleware(config *Config) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.MaxKeyLength <= 0 {
		config.MaxKeyLength = DefaultMaxKeyLength
	}
	if config.MaxResponseSize <= 0 {
		config.MaxResponseSize = DefaultMaxResponseSize
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !isMutatingMethod(c.Request.Method) {
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			middleware.AbortWithAppError(c, errors.NewAppError(CodeKeyInvalid, err.Error(), http.StatusBadRequest))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			if body, err = io.ReadAll(c.Request.Body); err != nil {
				middleware.AbortWithAppError(c, errors.ErrValidation("unreadable request body"))
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		process(c, config, key, Fingerprint(c.Request.Method, c.Request.URL.Path, body))
	}
}

func process(c *gin.Context, config *Config, key, fingerprint string) {
	ctx := c.Request.Context()
	logger := config.Logger.WithContext(ctx).WithComponent("idempotency")
	attrs := []any{"idempotencyKey", key, "path", c.Request.URL.Path}
	now := config.Now().UTC()

	candidate := &Key{
		ID:                 uuid.NewString(),
		Key:                key,
		ServiceID:          config.ServiceName,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      c.Request.Method,
		RequestFingerprint: fingerprint,
		LockedAt:           now,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	}

	stored, created, err := config.Repository.AcquireLock(ctx, candidate)
	if err != nil {
		logger.WithError(err).Error("Failed to acquire idempotency key", attrs...)
		config.record(OutcomeError)
		middleware.AbortWithAppError(c, errors.NewAppError(CodeStorageUnavailable,
			"idempotency storage is temporarily unavailable", http.StatusServiceUnavailable))
		return
	}

	if !created {
		if stored.RequestFingerprint != fingerprint {
			logger.Warn("Idempotency key reused with different parameters", attrs...)
			config.record(OutcomeMismatch)
			middleware.AbortWithAppError(c, errors.NewAppError(CodeParameterMismatch,
				"request parameters differ from the original request with this idempotency key", http.StatusUnprocessableEntity))
			return
		}

		if stored.IsCompleted() {
			logger.Debug("Replaying idempotent response", append(attrs, "status", stored.ResponseCode)...)
			config.record(OutcomeHit)
			replay(c, stored)
			return
		}

		if lockAge := now.Sub(stored.LockedAt); lockAge < config.LockTimeout {
			logger.Warn("Concurrent request with the same idempotency key", append(attrs, "lockAge", lockAge)...)
			config.record(OutcomeConflict)
			middleware.AbortWithAppError(c, errors.NewAppError(CodeConcurrentRequest,
				"a request with this idempotency key is currently being processed", http.StatusConflict))
			return
		}
		logger.Info("Taking over stale idempotency key", attrs...)
	}

	config.record(OutcomeMiss)
	writer := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
	c.Writer = writer

	c.Next()

	// the request context may already be cancelled by the client
	storeCtx := context.WithoutCancel(ctx)
	status := writer.Status()
	if status >= http.StatusInternalServerError || writer.body.Len() > config.MaxResponseSize {
		if err := config.Repository.Release(storeCtx, stored.ID); err != nil {
			logger.WithError(err).Error("Failed to release idempotency key", attrs...)
		}
		return
	}

	if err := config.Repository.StoreResponse(storeCtx, stored.ID, status, writer.body.Bytes(), responseHeaders(writer)); err != nil {
		logger.WithError(err).Error("Failed to store idempotent response", attrs...)
		config.record(OutcomeError)
	}
}

func replay(c *gin.Context, stored *Key) {
	contentType := "application/json; charset=utf-8"
	for k, v := range stored.ResponseHeaders {
		if k == "Content-Type" {
			contentType = v
			continue
		}
		c.Header(k, v)
	}
	c.Header(HeaderReplayed, "true")
	c.Data(stored.ResponseCode, contentType, stored.ResponseBody)
	c.Abort()
}

func responseHeaders(w gin.ResponseWriter) map[string]string {
	headers := make(map[string]string)
	for k, v := range w.Header() {
		if len(v) > 0 && !skippedHeaders[k] {
			headers[k] = v[0]
		}
	}
	return headers
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
