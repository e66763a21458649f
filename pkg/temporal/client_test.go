package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:7233", cfg.HostPort)
	assert.Equal(t, "default", cfg.Namespace)
}

func TestDefaultActivityOptions(t *testing.T) {
	opts := DefaultActivityOptions()
	assert.Equal(t, 30*time.Second, opts.StartToCloseTimeout)
	require.NotNil(t, opts.RetryPolicy)
	assert.Equal(t, int32(5), opts.RetryPolicy.MaximumAttempts)
	assert.Contains(t, opts.RetryPolicy.NonRetryableErrorTypes, NonRetryableErrorType)
}

func TestDefaultWorkerOptions(t *testing.T) {
	opts := DefaultWorkerOptions(TaskQueues.Inbound)
	assert.Equal(t, "fulfillment-inbound-queue", opts.TaskQueue)
	assert.Positive(t, opts.MaxConcurrentActivities)
}
