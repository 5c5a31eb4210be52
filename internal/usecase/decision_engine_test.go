package usecase

import (
	"context"
	"errors"
	"testing"

	"X402/internal/domain/models"
	dservice "X402/internal/domain/service"
	applogger "X402/pkg/logger"
	"X402/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Advise(ctx context.Context, snap models.DecisionSnapshot) (models.Verdict, error) {
	args := m.Called(ctx, snap)
	return args.Get(0).(models.Verdict), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Cycle(ctx context.Context, asset string, price float64, wantOpen bool) (models.CycleResult, error) {
	args := m.Called(ctx, asset, price, wantOpen)
	return args.Get(0).(models.CycleResult), args.Error(1)
}

func (m *MockLedger) Stats() models.Stats {
	return models.Stats{Balance: models.StartingBalance, Equity: models.StartingBalance}
}

type stubMarket struct {
	snap *models.MarketSnapshot
	err  error
}

func (s stubMarket) Snapshot(context.Context, string) (*models.MarketSnapshot, error) {
	return s.snap, s.err
}

type stubClassifier struct {
	probs [2]float64
	err   error
}

func (s stubClassifier) Predict(context.Context, []float64) ([2]float64, error) {
	return s.probs, s.err
}

type stubFleet map[string]dservice.Classifier

func (f stubFleet) For(asset string) (dservice.Classifier, bool) {
	c, ok := f[asset]
	return c, ok
}

type stubNews struct {
	digest string
	err    error
}

func (s stubNews) Digest(context.Context) (string, error) { return s.digest, s.err }

func snapshotAt(price, rsi float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{Asset: "BTC-USD", Price: price, RSI: rsi, Momentum: 0.01, Volatility: 0.002}
}

func newEngine(market dservice.MarketSnapshotBuilder, fleet stubFleet, oracle dservice.Oracle, news dservice.NewsSource, ledger TradeLedger) *DecisionEngine {
	return NewDecisionEngine(market, fleet, oracle, news, ledger, metrics.Nop{}, applogger.Nop())
}

func TestRuleVoteBoundaries(t *testing.T) {
	assert.Equal(t, 0, RuleVote(30))
	assert.Equal(t, 0, RuleVote(70))
	assert.Equal(t, 0, RuleVote(50))
	assert.Equal(t, 1, RuleVote(29.999))
	assert.Equal(t, -1, RuleVote(70.001))
}

func TestClassifierVoteFor(t *testing.T) {
	v := ClassifierVoteFor([2]float64{0.3, 0.7})
	assert.Equal(t, models.SignalBuy, v.Signal)
	assert.Equal(t, 1, v.Vote)
	assert.InDelta(t, 70.0, v.Confidence, 1e-9)

	v = ClassifierVoteFor([2]float64{0.8, 0.2})
	assert.Equal(t, models.SignalSell, v.Signal)
	assert.Equal(t, -1, v.Vote)
	assert.InDelta(t, 80.0, v.Confidence, 1e-9)
}

func TestBlendAndRiskMode(t *testing.T) {
	assert.InDelta(t, 0.2, BlendScore(1, -1, 0.6), 1e-9)
	assert.InDelta(t, -1.0, BlendScore(-1, -1, 0.3), 1e-9)
	assert.InDelta(t, 0.0, BlendScore(0, 0, 0.9), 1e-9)

	assert.Equal(t, models.RiskDegen, models.RiskModeFor(0.8))
	assert.Equal(t, models.RiskSafe, models.RiskModeFor(0.3))
	assert.Equal(t, models.RiskBalanced, models.RiskModeFor(0.6))
}

func TestFallbackVerdict(t *testing.T) {
	v := FallbackVerdict(0.15, models.RiskBalanced)
	assert.Equal(t, models.SignalWait, v.Signal)
	assert.Equal(t, 0.0, v.Confidence)

	v = FallbackVerdict(0.1501, models.RiskBalanced)
	assert.Equal(t, models.SignalBuy, v.Signal)
	assert.InDelta(t, 50+0.1501*50, v.Confidence, 1e-9)
	assert.Equal(t, "Oracle offline. Using BALANCED weights.", v.Reasoning)

	v = FallbackVerdict(-0.4, models.RiskSafe)
	assert.Equal(t, models.SignalSell, v.Signal)
	assert.InDelta(t, 70.0, v.Confidence, 1e-9)

	v = FallbackVerdict(-0.15, models.RiskSafe)
	assert.Equal(t, models.SignalWait, v.Signal)
}

func TestEvaluateUsesOracleVerdict(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	fleet := stubFleet{"BTC-USD": stubClassifier{probs: [2]float64{0.4, 0.6}}}
	e := newEngine(stubMarket{snap: snapshotAt(100, 50)}, fleet, oracle, stubNews{digest: "a | b"}, ledger)

	oracle.On("Advise", mock.Anything, mock.MatchedBy(func(s models.DecisionSnapshot) bool {
		return s.Classifier.Signal == models.SignalBuy && s.News == "a | b" && s.RiskMode == models.RiskBalanced
	})).Return(models.Verdict{Signal: models.SignalBuy, Confidence: 55, Reasoning: "trend up"}, nil)
	ledger.On("Cycle", mock.Anything, "BTC-USD", 100.0, true).
		Return(models.CycleResult{Opened: &models.Position{Asset: "BTC-USD"}}, nil)

	ev, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.False(t, ev.Fallback)
	assert.Equal(t, models.SignalBuy, ev.Verdict.Signal)
	assert.Equal(t, "trend up", ev.Verdict.Reasoning)
	assert.Equal(t, models.TradeOpened, ev.TradeStatus)
	oracle.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestEvaluateEntryGate(t *testing.T) {
	cases := []struct {
		conf     float64
		wantOpen bool
	}{
		{10, false},
		{10.01, true},
	}
	for _, tc := range cases {
		oracle := new(MockOracle)
		ledger := new(MockLedger)
		e := newEngine(stubMarket{snap: snapshotAt(100, 50)}, stubFleet{}, oracle, stubNews{}, ledger)

		oracle.On("Advise", mock.Anything, mock.Anything).
			Return(models.Verdict{Signal: models.SignalBuy, Confidence: tc.conf}, nil)
		ledger.On("Cycle", mock.Anything, "BTC-USD", 100.0, tc.wantOpen).Return(models.CycleResult{}, nil)

		_, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
		require.NoError(t, err)
		ledger.AssertExpectations(t)
	}
}

func TestEvaluateFallsBackWhenOracleFails(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	// RSI 20 votes +1, no classifier: score = 0.4 * 1 = 0.4
	e := newEngine(stubMarket{snap: snapshotAt(100, 20)}, stubFleet{}, oracle, stubNews{err: errors.New("dns")}, ledger)

	oracle.On("Advise", mock.Anything, mock.MatchedBy(func(s models.DecisionSnapshot) bool {
		return s.News == models.NewsOffline && s.Classifier == models.NoOpinion && s.RuleVote == 1
	})).Return(models.Verdict{}, errors.New("timeout"))
	ledger.On("Cycle", mock.Anything, "BTC-USD", 100.0, true).Return(models.CycleResult{InsufficientFunds: true}, nil)

	ev, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.True(t, ev.Fallback)
	assert.Equal(t, models.SignalBuy, ev.Verdict.Signal)
	assert.InDelta(t, 70.0, ev.Verdict.Confidence, 1e-9)
	assert.Equal(t, models.TradeInsufficientFunds, ev.TradeStatus)
}

func TestEvaluateZeroConfidenceOracleIsUnavailable(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	e := newEngine(stubMarket{snap: snapshotAt(100, 50)}, stubFleet{}, oracle, stubNews{}, ledger)

	oracle.On("Advise", mock.Anything, mock.Anything).
		Return(models.Verdict{Signal: models.SignalBuy, Confidence: 0, Reasoning: "unsure"}, nil)
	ledger.On("Cycle", mock.Anything, "BTC-USD", 100.0, false).Return(models.CycleResult{}, nil)

	ev, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.True(t, ev.Fallback)
	assert.Equal(t, models.SignalWait, ev.Verdict.Signal)
	assert.Equal(t, models.TradeScanning, ev.TradeStatus)
}

func TestEvaluateClassifierErrorIsNoOpinion(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	fleet := stubFleet{"BTC-USD": stubClassifier{err: errors.New("502")}}
	e := newEngine(stubMarket{snap: snapshotAt(100, 50)}, fleet, oracle, stubNews{}, ledger)

	oracle.On("Advise", mock.Anything, mock.MatchedBy(func(s models.DecisionSnapshot) bool {
		return s.Classifier == models.NoOpinion
	})).Return(models.Verdict{}, errors.New("off"))
	ledger.On("Cycle", mock.Anything, "BTC-USD", 100.0, false).Return(models.CycleResult{}, nil)

	_, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	require.NoError(t, err)
	oracle.AssertExpectations(t)
}

func TestEvaluateProfitPrefix(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	e := newEngine(stubMarket{snap: snapshotAt(101.6, 50)}, stubFleet{}, oracle, stubNews{}, ledger)

	oracle.On("Advise", mock.Anything, mock.Anything).
		Return(models.Verdict{Signal: models.SignalWait, Confidence: 40, Reasoning: "range bound"}, nil)
	ledger.On("Cycle", mock.Anything, "BTC-USD", 101.6, false).
		Return(models.CycleResult{RealizedPnL: 16, Closed: []models.ClosedTrade{{Profit: 16}}}, nil)

	ev, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.Equal(t, "PROFIT TAKEN! Sold position for +$16.00. range bound", ev.Verdict.Reasoning)
}

func TestEvaluateMissingSnapshotSkipsLedger(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	e := newEngine(stubMarket{err: models.ErrNoSnapshot}, stubFleet{}, oracle, stubNews{}, ledger)

	ev, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.Equal(t, models.SignalError, ev.Verdict.Signal)
	assert.Equal(t, 0.0, ev.Verdict.Confidence)
	assert.Equal(t, models.StartingBalance, ev.Cycle.Stats.Balance)
	oracle.AssertNotCalled(t, "Advise", mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "Cycle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluateLedgerFailure(t *testing.T) {
	oracle := new(MockOracle)
	ledger := new(MockLedger)
	e := newEngine(stubMarket{snap: snapshotAt(100, 50)}, stubFleet{}, oracle, stubNews{}, ledger)

	oracle.On("Advise", mock.Anything, mock.Anything).Return(models.Verdict{}, errors.New("off"))
	ledger.On("Cycle", mock.Anything, "BTC-USD", 100.0, false).Return(models.CycleResult{}, errors.New("disk"))

	_, err := e.Evaluate(context.Background(), "BTC-USD", 0.6)
	assert.Error(t, err)
}

func TestEvaluateEndToEndWithLedger(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, &memLedgerStore{})
	oracle := new(MockOracle)
	oracle.On("Advise", mock.Anything, mock.Anything).
		Return(models.Verdict{Signal: models.SignalBuy, Confidence: 55, Reasoning: "go"}, nil).Once()
	oracle.On("Advise", mock.Anything, mock.Anything).
		Return(models.Verdict{Signal: models.SignalWait, Confidence: 30, Reasoning: "hold"}, nil).Once()

	market := &stubMarket{snap: snapshotAt(100, 50)}
	e := newEngine(market, stubFleet{}, oracle, stubNews{}, l)

	ev, err := e.Evaluate(ctx, "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.Equal(t, models.TradeOpened, ev.TradeStatus)
	assert.Equal(t, 9000.0, ev.Cycle.Stats.Balance)
	assert.Equal(t, 1, ev.Cycle.Stats.OpenTrades)

	market.snap = snapshotAt(101.6, 50)
	ev, err = e.Evaluate(ctx, "BTC-USD", 0.6)
	require.NoError(t, err)
	assert.InDelta(t, 16.0, ev.Cycle.RealizedPnL, 1e-9)
	assert.Equal(t, 0, ev.Cycle.Stats.OpenTrades)
	assert.Contains(t, ev.Verdict.Reasoning, "PROFIT TAKEN! Sold position for +$16.00. ")
}
