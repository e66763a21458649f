package application

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when a lock cannot be taken before the wait expires
var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker serializes mutating operations. Lock acquires every key, in sorted
// order, and returns a function releasing all of them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// TxManager commits the writes made through ctx by fn atomically
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PickupScheduler drives the pickup SLA workflow of an inbound request
type PickupScheduler interface {
	SchedulePickup(ctx context.Context, requestID string) (workflowID string, err error)
	SignalPickedUp(ctx context.Context, workflowID string) error
	SignalReceived(ctx context.Context, workflowID string) error
}

// OrderLockKey is the lock key of an order
func OrderLockKey(orderID string) string {
	return "order:" + orderID
}

// InboundLockKey is the lock key of an inbound request
func InboundLockKey(requestID string) string {
	return "inbound:" + requestID
}

// LedgerLockKey is the lock key of a merchant's inventory ledger
func LedgerLockKey(merchantID string) string {
	return "ledger:" + merchantID
}

// Options holds the settings shared by the application services
type Options struct {
	// LockWait bounds how long an operation waits for its locks
	LockWait time.Duration
}

// DefaultOptions returns default service options
func DefaultOptions() Options {
	return Options{LockWait: 5 * time.Second}
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NoopTxManager runs fn without a transaction, for stores that cannot offer one
func NoopTxManager() TxManager {
	return noopTx{}
}
