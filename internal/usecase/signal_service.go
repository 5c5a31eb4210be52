package usecase

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	dservice "X402/internal/domain/service"
	applogger "X402/pkg/logger"
	"X402/pkg/util"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ServerSource tags audit entries written by the signal server itself.
const ServerSource = "Signal-Server"

// SignalService gates the decision engine behind payment verification.
type SignalService struct {
	challenge models.Challenge
	verifier  dservice.PaymentVerifier
	engine    *DecisionEngine
	settings  *Settings
	audit     *AuditLog
	recorder  *DecisionRecorder
	metrics   drepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

func NewSignalService(
	challenge models.Challenge,
	verifier dservice.PaymentVerifier,
	engine *DecisionEngine,
	settings *Settings,
	audit *AuditLog,
	recorder *DecisionRecorder,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *SignalService {
	return &SignalService{
		challenge: challenge,
		verifier:  verifier,
		engine:    engine,
		settings:  settings,
		audit:     audit,
		recorder:  recorder,
		metrics:   metrics,
		log:       l.With("signal_service"),
		now:       time.Now,
	}
}

// Challenge returns the fixed payment terms. It never touches the ledger.
func (s *SignalService) Challenge() models.Challenge {
	s.metrics.RecordChallenge()
	return models.Challenge{
		Price:        new(big.Int).Set(s.challenge.Price),
		PayeeAddress: s.challenge.PayeeAddress,
		TokenAddress: s.challenge.TokenAddress,
	}
}

// Deliver verifies proof and, when it holds, runs exactly one decision
// cycle. A failed verification returns ErrPaymentRejected.
func (s *SignalService) Deliver(ctx context.Context, proof string) (*models.SignalResponse, error) {
	proof = strings.TrimSpace(proof)
	if !s.verifier.Verify(ctx, proof, s.challenge) {
		s.metrics.RecordPayment(false)
		s.log.Info("payment rejected", applogger.String("proof", proof))
		_ = s.audit.Record(ctx, ServerSource, models.ActionPaymentRejected, "Rejected payment proof "+shortProof(proof))
		return nil, models.ErrPaymentRejected
	}
	s.metrics.RecordPayment(true)

	asset, weight := s.settings.Current()
	ev, err := s.engine.Evaluate(ctx, asset, weight)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", asset, err)
	}

	resp := buildSignalResponse(ev)
	_ = s.audit.Record(ctx, ServerSource, models.ActionDelivered,
		fmt.Sprintf("Delivered %s %s (%.1f%%) for %s", asset, resp.Data.Signal, resp.Data.Confidence, shortProof(proof)))

	s.recorder.Record(&models.DecisionEvent{
		ID:          uuid.NewString(),
		Asset:       asset,
		Signal:      ev.Verdict.Signal,
		Confidence:  ev.Verdict.Confidence,
		Price:       ev.Snapshot.Market.Price,
		RSI:         ev.Snapshot.Market.RSI,
		Momentum:    ev.Snapshot.Market.Momentum,
		Volatility:  ev.Snapshot.Market.Volatility,
		RiskMode:    ev.Snapshot.RiskMode,
		TradeStatus: ev.TradeStatus,
		RealizedPnL: ev.Cycle.RealizedPnL,
		Proof:       common.HexToHash(proof).Hex(),
		At:          s.now().UTC(),
	})
	return resp, nil
}

func buildSignalResponse(ev *Evaluation) *models.SignalResponse {
	m := ev.Snapshot.Market
	st := ev.Cycle.Stats
	return &models.SignalResponse{
		Status: models.StatusPaid,
		Data: models.SignalData{
			Signal:      ev.Verdict.Signal,
			Confidence:  util.Round(ev.Verdict.Confidence, 1),
			MarketPrice: util.Round(m.Price, 2),
			Details: models.SignalDetails{
				Asset:       ev.Snapshot.Asset,
				Momentum:    util.Round(m.Momentum, 4),
				Volatility:  util.Round(m.Volatility, 4),
				RSI:         util.Round(m.RSI, 2),
				News:        ev.Snapshot.News,
				Reasoning:   ev.Verdict.Reasoning,
				RiskMode:    ev.Snapshot.RiskMode,
				Balance:     st.Balance,
				Equity:      st.Equity,
				PnL:         st.PnLPercent,
				OpenTrades:  st.OpenTrades,
				TradeStatus: ev.TradeStatus,
			},
		},
	}
}

func shortProof(p string) string {
	if len(p) <= 14 {
		return p
	}
	return p[:10] + "..." + p[len(p)-4:]
}
