package repository

import (
	"context"
	"fmt"
	"testing"

	"X402/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogStoreNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLogStore(models.MaxRecentLogs)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, models.LogEntry{Action: fmt.Sprint(i)}))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].Action)
	assert.Equal(t, "0", got[2].Action)

	got, _ = s.Recent(ctx, 0)
	assert.Empty(t, got)
}

func TestMemoryLogStoreWrapsAtCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLogStore(60)
	for i := 0; i < 75; i++ {
		require.NoError(t, s.Append(ctx, models.LogEntry{Action: fmt.Sprint(i)}))
	}

	got, err := s.Recent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 60)
	assert.Equal(t, "74", got[0].Action)
	assert.Equal(t, "15", got[59].Action)

	require.NoError(t, s.Clear(ctx))
	got, _ = s.Recent(ctx, 10)
	assert.Empty(t, got)

	require.NoError(t, s.Append(ctx, models.LogEntry{Action: "after"}))
	got, _ = s.Recent(ctx, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].Action)
}
