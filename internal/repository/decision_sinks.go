package repository

import (
	"context"
	"database/sql"
	"fmt"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	pkgkafka "X402/pkg/kafka"
)

// KafkaPublisher is the part of pkg/kafka.Producer the sink needs.
type KafkaPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ KafkaPublisher = (*pkgkafka.Producer)(nil)

// KafkaDecisionSink publishes decision events as JSON, keyed by asset.
type KafkaDecisionSink struct {
	producer KafkaPublisher
	topic    string
}

var _ drepo.DecisionSink = (*KafkaDecisionSink)(nil)

func NewKafkaDecisionSink(producer KafkaPublisher, topic string) *KafkaDecisionSink {
	return &KafkaDecisionSink{producer: producer, topic: topic}
}

func (s *KafkaDecisionSink) Publish(ctx context.Context, e *models.DecisionEvent) error {
	return s.producer.Publish(ctx, s.topic, []byte(e.Asset), e)
}

func (s *KafkaDecisionSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// DecisionEventsDDL creates the ClickHouse table for decision events.
func DecisionEventsDDL(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    at           DateTime64(3, 'UTC'),
    id           String,
    asset        LowCardinality(String),
    signal       LowCardinality(String),
    confidence   Float64,
    price        Float64,
    rsi          Float64,
    momentum     Float64,
    volatility   Float64,
    risk_mode    LowCardinality(String),
    trade_status String,
    realized_pnl Float64,
    proof        String
) ENGINE = MergeTree
ORDER BY (asset, at)`, table)}
}

// Execer is satisfied by *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ClickHouseDecisionSink archives decision events in ClickHouse.
type ClickHouseDecisionSink struct {
	db     Execer
	table  string
	closer func() error
}

var _ drepo.DecisionSink = (*ClickHouseDecisionSink)(nil)

// NewClickHouseDecisionSink writes to table; closer, if set, runs on Close.
func NewClickHouseDecisionSink(db Execer, table string, closer func() error) *ClickHouseDecisionSink {
	return &ClickHouseDecisionSink{db: db, table: table, closer: closer}
}

func (s *ClickHouseDecisionSink) Publish(ctx context.Context, e *models.DecisionEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (at, id, asset, signal, confidence, price, rsi, momentum, volatility, risk_mode, trade_status, realized_pnl, proof) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		e.At.UTC(),
		e.ID,
		e.Asset,
		string(e.Signal),
		e.Confidence,
		e.Price,
		e.RSI,
		e.Momentum,
		e.Volatility,
		string(e.RiskMode),
		e.TradeStatus,
		e.RealizedPnL,
		e.Proof,
	)
	if err != nil {
		return fmt.Errorf("insert decision event: %w", err)
	}
	return nil
}

func (s *ClickHouseDecisionSink) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// NopDecisionSink drops every event.
type NopDecisionSink struct{}

func (NopDecisionSink) Publish(context.Context, *models.DecisionEvent) error { return nil }
func (NopDecisionSink) Close() error { return nil }
