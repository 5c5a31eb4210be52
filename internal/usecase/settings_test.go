package usecase

import (
	"context"
	"math"
	"sync"
	"testing"

	"X402/internal/domain/models"
	applogger "X402/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	s, err := NewSettings([]string{"BTC-USD", "ETH-USD", "BTC-USD"}, "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, s.Assets())

	require.NoError(t, s.SetAsset("ETH-USD"))
	assert.ErrorIs(t, s.SetAsset("XRP-USD"), models.ErrUnknownAsset)

	require.NoError(t, s.SetRiskWeight(0.9))
	assert.Error(t, s.SetRiskWeight(1.5))
	assert.Error(t, s.SetRiskWeight(math.NaN()))

	asset, w := s.Current()
	assert.Equal(t, "ETH-USD", asset)
	assert.Equal(t, 0.9, w)

	_, err = NewSettings([]string{"BTC-USD"}, "SOL-USD", 0.6)
	assert.ErrorIs(t, err, models.ErrUnknownAsset)
}

func TestSettingsConcurrentAccess(t *testing.T) {
	s, err := NewSettings([]string{"BTC-USD", "ETH-USD"}, "BTC-USD", 0.6)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.SetRiskWeight(float64(i%10) / 10)
			_ = s.SetAsset([]string{"BTC-USD", "ETH-USD"}[i%2])
		}(i)
		go func() {
			defer wg.Done()
			_, w := s.Current()
			assert.True(t, w >= 0 && w <= 1)
		}()
	}
	wg.Wait()
}

func TestAuditLogRecentAndSubscribe(t *testing.T) {
	ctx := context.Background()
	a := NewAuditLog(&memLogStore{}, applogger.Nop())

	ch, cancel := a.Subscribe(4)
	defer cancel()

	for i := 0; i < 60; i++ {
		require.NoError(t, a.Record(ctx, "Agent-007", models.ActionWait, "poll"))
	}
	require.NoError(t, a.Record(ctx, "Agent-007", models.ActionDelivered, "done"))

	got, err := a.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, got, models.MaxRecentLogs)
	assert.Equal(t, models.ActionDelivered, got[0].Action)

	first := <-ch
	assert.Equal(t, models.ActionWait, first.Action)

	require.NoError(t, a.Clear(ctx))
	got, err = a.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	cancel()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}
