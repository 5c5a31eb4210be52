package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"X402/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return nil
}

func (c *capturePublisher) Close() error { return nil }

type captureExecer struct {
	query string
	args  []any
	err   error
}

func (c *captureExecer) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	c.query, c.args = q, args
	return nil, c.err
}

var sampleEvent = &models.DecisionEvent{
	ID:          "e-1",
	Asset:       "ETH-USD",
	Signal:      models.SignalBuy,
	Confidence:  61,
	Price:       3100.25,
	RiskMode:    models.RiskBalanced,
	TradeStatus: models.TradeOpened,
	Proof:       "0xabc",
	At:          time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
}

func TestKafkaDecisionSink(t *testing.T) {
	p := &capturePublisher{}
	s := NewKafkaDecisionSink(p, "x402.decisions")
	require.NoError(t, s.Publish(context.Background(), sampleEvent))

	assert.Equal(t, "x402.decisions", p.topic)
	assert.Equal(t, []byte("ETH-USD"), p.key)
	b, err := json.Marshal(p.value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"signal":"BUY"`)
	assert.NoError(t, s.Close())
}

func TestClickHouseDecisionSink(t *testing.T) {
	db := &captureExecer{}
	closed := false
	s := NewClickHouseDecisionSink(db, "decision_events", func() error { closed = true; return nil })

	require.NoError(t, s.Publish(context.Background(), sampleEvent))
	assert.Contains(t, db.query, "INSERT INTO decision_events")
	require.Len(t, db.args, 13)
	assert.Equal(t, "ETH-USD", db.args[2])
	assert.Equal(t, "BUY", db.args[3])
	assert.Equal(t, "0xabc", db.args[12])

	db.err = errors.New("table missing")
	assert.Error(t, s.Publish(context.Background(), sampleEvent))

	require.NoError(t, s.Close())
	assert.True(t, closed)
}

func TestDecisionEventsDDL(t *testing.T) {
	ddl := DecisionEventsDDL("x402.decision_events")
	require.Len(t, ddl, 1)
	assert.Contains(t, ddl[0], "CREATE TABLE IF NOT EXISTS x402.decision_events")
	assert.Contains(t, ddl[0], "MergeTree")
}
