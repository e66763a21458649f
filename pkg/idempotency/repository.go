package idempotency

import "context"

// KeyRepository stores idempotency keys; AcquireLock must be atomic per (serviceId, key)
type KeyRepository interface {
	// AcquireLock inserts key unless one with the same service and key exists.
	// It returns the stored key and whether this call created it.
	AcquireLock(ctx context.Context, key *Key) (*Key, bool, error)

	// StoreResponse completes the key with the response to replay
	StoreResponse(ctx context.Context, id string, code int, body []byte, headers map[string]string) error

	// Release forgets an uncompleted key so the request can be retried
	Release(ctx context.Context, id string) error

	EnsureIndexes(ctx context.Context) error
}
