package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxManager runs functions inside a multi-document transaction.
// Repositories called with the context passed to fn join the transaction.
type TxManager struct {
	client *mongo.Client
}

// NewTxManager creates a transaction manager over client
func NewTxManager(client *mongo.Client) *TxManager {
	return &TxManager{client: client}
}

// RunInTransaction commits fn's writes atomically; transient errors are retried by the driver.
// Called inside another transaction, fn joins it.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
