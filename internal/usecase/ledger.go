package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	applogger "X402/pkg/logger"
	"X402/pkg/util"
)

// Ledger owns the paper portfolio. Every mutation is computed on a copy,
// persisted, and only then swapped in, so a failed write leaves the
// in-memory state untouched.
type Ledger struct {
	mu      sync.Mutex
	state   *models.LedgerState
	store   drepo.LedgerStore
	metrics drepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

// LedgerOption configures Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock overrides the timestamp source.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// NewLedger loads the persisted state from store.
func NewLedger(ctx context.Context, store drepo.LedgerStore, metrics drepo.Metrics, l *applogger.Logger, opts ...LedgerOption) (*Ledger, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	lg := &Ledger{
		state:   state,
		store:   store,
		metrics: metrics,
		log:     l.With("ledger"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(lg)
	}
	lg.metrics.RecordLedger(computeStats(state))
	return lg, nil
}

// Open debits the fixed notional and records a new position.
// It returns false without mutating anything when cash is short.
func (l *Ledger) Open(ctx context.Context, asset string, price float64) (bool, error) {
	res, err := l.apply(ctx, asset, price, false, true)
	if err != nil {
		return false, err
	}
	return res.Opened != nil, nil
}

// EvaluateExits closes every position of asset whose move from entry hits
// take-profit or stop-loss and returns the summed realized profit.
func (l *Ledger) EvaluateExits(ctx context.Context, asset string, price float64) (float64, error) {
	res, err := l.apply(ctx, asset, price, true, false)
	if err != nil {
		return 0, err
	}
	return res.RealizedPnL, nil
}

// Cycle evaluates exits for asset and then, when wantOpen is set, tries to
// open a position. Both steps run under one lock and persist once.
func (l *Ledger) Cycle(ctx context.Context, asset string, price float64, wantOpen bool) (models.CycleResult, error) {
	return l.apply(ctx, asset, price, true, wantOpen)
}

func (l *Ledger) apply(ctx context.Context, asset string, price float64, evaluate, wantOpen bool) (models.CycleResult, error) {
	if !util.Finite(price) || price <= 0 {
		return models.CycleResult{}, fmt.Errorf("%w: %v", models.ErrInvalidPrice, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	next := l.state.Clone()
	var res models.CycleResult

	if evaluate {
		res.Closed = closeExits(next, asset, price, now)
		for _, c := range res.Closed {
			res.RealizedPnL += c.Profit
		}
	}

	if wantOpen {
		pos, err := openPosition(next, asset, price, now)
		switch {
		case errors.Is(err, models.ErrInsufficientFunds):
			res.InsufficientFunds = true
		case err != nil:
			return models.CycleResult{}, err
		default:
			res.Opened = pos
		}
	}

	if len(res.Closed) > 0 || res.Opened != nil {
		if err := l.store.Save(ctx, next); err != nil {
			l.log.Error("ledger write failed, state rolled back",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
			l.metrics.RecordError("ledger_save")
			return models.CycleResult{}, fmt.Errorf("save ledger: %w", err)
		}
		l.state = next
		opened := 0
		if res.Opened != nil {
			opened = 1
		}
		l.metrics.RecordTrades(opened, len(res.Closed))
	}

	res.Stats = computeStats(l.state)
	l.metrics.RecordLedger(res.Stats)
	return res, nil
}

// Stats returns balance, equity at entry prices, PnL percent against the
// starting balance and the open position count.
func (l *Ledger) Stats() models.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return computeStats(l.state)
}

// Portfolio returns a copy of the full state with stats.
func (l *Ledger) Portfolio() models.Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.state.Clone()
	return models.Portfolio{
		Stats:     computeStats(c),
		Positions: c.Positions,
		History:   c.History,
	}
}

func openPosition(s *models.LedgerState, asset string, price float64, now time.Time) (*models.Position, error) {
	if s.Balance < models.TradeNotional {
		return nil, models.ErrInsufficientFunds
	}
	s.Balance -= models.TradeNotional
	pos := models.Position{
		Asset:      asset,
		EntryPrice: price,
		Units:      models.TradeNotional / price,
		OpenedAt:   now,
	}
	s.Positions = append(s.Positions, pos)
	return &pos, nil
}

func closeExits(s *models.LedgerState, asset string, price float64, now time.Time) []models.ClosedTrade {
	var closed []models.ClosedTrade
	kept := s.Positions[:0]
	for _, p := range s.Positions {
		if p.Asset != asset {
			kept = append(kept, p)
			continue
		}
		pct := (price - p.EntryPrice) / p.EntryPrice
		if pct < models.TakeProfitPct && pct > models.StopLossPct {
			kept = append(kept, p)
			continue
		}
		proceeds := p.Units * price
		s.Balance += proceeds
		trade := models.ClosedTrade{
			Asset:      p.Asset,
			EntryPrice: p.EntryPrice,
			ExitPrice:  price,
			Units:      p.Units,
			Profit:     proceeds - models.TradeNotional,
			ClosedAt:   now,
		}
		s.History = append(s.History, trade)
		closed = append(closed, trade)
	}
	s.Positions = kept
	return closed
}

func computeStats(s *models.LedgerState) models.Stats {
	equity := s.Balance
	for _, p := range s.Positions {
		equity += p.Units * p.EntryPrice
	}
	pnl := (equity - models.StartingBalance) / models.StartingBalance * 100
	return models.Stats{
		Balance:    util.Round(s.Balance, 2),
		Equity:     util.Round(equity, 2),
		PnLPercent: util.Round(pnl, 2),
		OpenTrades: len(s.Positions),
	}
}
