package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisc "github.com/paperlens/core/internal/pkg/redis"
)

// unreachableService builds a Service whose redis backend refuses every
// connection, so store operations fail deterministically.
func unreachableService() *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewService(redisc.NewFromClient(rdb))
}

func TestUpdateStatusPreservesStoreError(t *testing.T) {
	svc := unreachableService()

	err := svc.UpdateStatus(context.Background(), "task-1", TaskFailed, nil, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load task task-1")
	assert.NotContains(t, err.Error(), "not found", "a store failure must not read as a missing task")
}
