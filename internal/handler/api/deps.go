package api

import (
	"context"

	"X402/internal/domain/models"
)

// SignalSeller issues challenges and sells verified signals.
type SignalSeller interface {
	Challenge() models.Challenge
	Deliver(ctx context.Context, proof string) (*models.SignalResponse, error)
}

// AuditTrail is the shared agent/server log.
type AuditTrail interface {
	Record(ctx context.Context, source, action, message string) error
	Recent(ctx context.Context, n int) ([]models.LogEntry, error)
	Clear(ctx context.Context) error
	Subscribe(buffer int) (<-chan models.LogEntry, func())
}

// SettingsStore holds the runtime-tunable asset and risk weight.
type SettingsStore interface {
	Current() (string, float64)
	Assets() []string
	SetAsset(asset string) error
	SetRiskWeight(w float64) error
}

// PortfolioReader exposes the read-only ledger view.
type PortfolioReader interface {
	Portfolio() models.Portfolio
}

// AgentTrigger starts one settlement run in the background.
type AgentTrigger interface {
	Trigger(ctx context.Context) (runID string, err error)
}
