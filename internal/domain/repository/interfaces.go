package repository

import (
	"context"

	"X402/internal/domain/models"
)

// LedgerStore persists the whole portfolio document.
type LedgerStore interface {
	// Load returns a fresh state when nothing has been stored yet.
	Load(ctx context.Context) (*models.LedgerState, error)
	Save(ctx context.Context, s *models.LedgerState) error
}

// LogStore is the bounded audit trail, newest first.
type LogStore interface {
	Append(ctx context.Context, e models.LogEntry) error
	Recent(ctx context.Context, n int) ([]models.LogEntry, error)
	Clear(ctx context.Context) error
}

// DecisionSink receives one event per delivered cycle.
type DecisionSink interface {
	Publish(ctx context.Context, e *models.DecisionEvent) error
	Close() error
}

type Metrics interface {
	RecordChallenge()
	RecordPayment(accepted bool)
	RecordVerdict(signal string, fallback bool)
	RecordTrades(opened, closed int)
	RecordLedger(stats models.Stats)
	RecordSettlement(state string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
