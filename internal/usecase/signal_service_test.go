package usecase

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"X402/internal/domain/models"
	applogger "X402/pkg/logger"
	"X402/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memLogStore struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (m *memLogStore) Append(_ context.Context, e models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]models.LogEntry{e}, m.entries...)
	return nil
}

func (m *memLogStore) Recent(_ context.Context, n int) ([]models.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.entries) {
		n = len(m.entries)
	}
	return append([]models.LogEntry(nil), m.entries[:n]...), nil
}

func (m *memLogStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

type stubVerifier struct {
	ok    bool
	calls int
}

func (v *stubVerifier) Verify(context.Context, string, models.Challenge) bool {
	v.calls++
	return v.ok
}

type recordingSink struct {
	mu     sync.Mutex
	events []*models.DecisionEvent
	err    error
}

func (r *recordingSink) Publish(_ context.Context, e *models.DecisionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

type signalFixture struct {
	svc      *SignalService
	ledger   *Ledger
	logs     *memLogStore
	verifier *stubVerifier
	sink     *recordingSink
	recorder *DecisionRecorder
	oracle   *MockOracle
}

var testChallenge = models.Challenge{
	Price:        big.NewInt(1_000_000),
	PayeeAddress: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
	TokenAddress: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
}

func newSignalFixture(t *testing.T, verified bool) *signalFixture {
	t.Helper()
	f := &signalFixture{
		ledger:   newTestLedger(t, &memLedgerStore{}),
		logs:     &memLogStore{},
		verifier: &stubVerifier{ok: verified},
		sink:     &recordingSink{},
		oracle:   new(MockOracle),
	}
	settings, err := NewSettings([]string{"BTC-USD", "ETH-USD"}, "BTC-USD", 0.6)
	require.NoError(t, err)

	l := applogger.Nop()
	engine := NewDecisionEngine(stubMarket{snap: snapshotAt(100, 50)}, stubFleet{}, f.oracle, stubNews{digest: "h1 | h2"}, f.ledger, metrics.Nop{}, l)
	f.recorder = NewDecisionRecorder(f.sink, "test", metrics.Nop{}, l)
	f.svc = NewSignalService(testChallenge, f.verifier, engine, settings, NewAuditLog(f.logs, l), f.recorder, metrics.Nop{}, l)
	return f
}

func TestChallengeHasNoSideEffects(t *testing.T) {
	f := newSignalFixture(t, true)

	c := f.svc.Challenge()
	assert.Equal(t, int64(1_000_000), c.Price.Int64())
	assert.Equal(t, testChallenge.PayeeAddress, c.PayeeAddress)
	assert.Equal(t, testChallenge.TokenAddress, c.TokenAddress)

	// callers cannot mutate the configured price
	c.Price.SetInt64(1)
	assert.Equal(t, int64(1_000_000), f.svc.Challenge().Price.Int64())

	assert.Equal(t, 0, f.verifier.calls)
	assert.Equal(t, models.StartingBalance, f.ledger.Stats().Balance)
	assert.Empty(t, f.logs.entries)
}

func TestDeliverRejectedProof(t *testing.T) {
	f := newSignalFixture(t, false)

	_, err := f.svc.Deliver(context.Background(), "0xdeadbeef")
	require.ErrorIs(t, err, models.ErrPaymentRejected)

	assert.Equal(t, models.StartingBalance, f.ledger.Stats().Balance)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, models.ActionPaymentRejected, f.logs.entries[0].Action)
	assert.Equal(t, ServerSource, f.logs.entries[0].Source)
	f.oracle.AssertNotCalled(t, "Advise", mock.Anything, mock.Anything)
}

func TestDeliverRunsOneCycle(t *testing.T) {
	f := newSignalFixture(t, true)
	f.oracle.On("Advise", mock.Anything, mock.Anything).
		Return(models.Verdict{Signal: models.SignalBuy, Confidence: 55.56, Reasoning: "breakout"}, nil).Once()

	resp, err := f.svc.Deliver(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPaid, resp.Status)
	assert.Equal(t, models.SignalBuy, resp.Data.Signal)
	assert.Equal(t, 55.6, resp.Data.Confidence)
	assert.Equal(t, 100.0, resp.Data.MarketPrice)

	d := resp.Data.Details
	assert.Equal(t, "BTC-USD", d.Asset)
	assert.Equal(t, "h1 | h2", d.News)
	assert.Equal(t, models.TradeOpened, d.TradeStatus)
	// stats are read after the entry: they include the position just opened
	assert.Equal(t, 9000.0, d.Balance)
	assert.Equal(t, 10000.0, d.Equity)
	assert.Equal(t, 1, d.OpenTrades)
	assert.Equal(t, models.RiskBalanced, d.RiskMode)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, models.ActionDelivered, f.logs.entries[0].Action)

	require.NoError(t, f.recorder.Close())
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "BTC-USD", f.sink.events[0].Asset)
	assert.Equal(t, models.TradeOpened, f.sink.events[0].TradeStatus)
	assert.NotEmpty(t, f.sink.events[0].ID)
}

func TestDeliverSinkFailureDoesNotAffectResponse(t *testing.T) {
	f := newSignalFixture(t, true)
	f.sink.err = errors.New("broker down")
	f.oracle.On("Advise", mock.Anything, mock.Anything).Return(models.Verdict{}, errors.New("off"))

	resp, err := f.svc.Deliver(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, models.SignalWait, resp.Data.Signal)
	assert.Equal(t, "Oracle offline. Using BALANCED weights.", resp.Data.Details.Reasoning)
	require.NoError(t, f.recorder.Close())
}
