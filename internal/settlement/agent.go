// Package settlement implements the buyer side of the 402 protocol: it asks
// for a signal, pays the quoted price on-chain and polls until the server
// accepts the transaction as proof.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	"X402/pkg/chain"
	xhttp "X402/pkg/http"
	applogger "X402/pkg/logger"
	"X402/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

type State string

const (
	StateScan      State = "SCAN"
	StateNegotiate State = "NEGOTIATE"
	StateBuildTx   State = "BUILD_TX"
	StateSign      State = "SIGN"
	StateBroadcast State = "BROADCAST"
	StatePoll      State = "POLL"
	StateDelivered State = "DELIVERED"
	StateTimeout   State = "TIMEOUT"
	StateError     State = "ERROR"
)

// Terminal reports whether a run stops in s.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateTimeout || s == StateError
}

// Payer builds, signs and broadcasts token transfers. *chain.Wallet
// satisfies it.
type Payer interface {
	Address() common.Address
	BuildTransfer(ctx context.Context, token, to common.Address, amount *big.Int) (*types.Transaction, error)
	Sign(tx *types.Transaction) (*types.Transaction, error)
	Broadcast(ctx context.Context, tx *types.Transaction) (common.Hash, error)
}

var _ Payer = (*chain.Wallet)(nil)

// Doer is the HTTP surface the agent needs. *xhttp.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, opts *xhttp.RequestOptions) (*xhttp.Response, error)
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	State     State
	Challenge *models.Challenge
	TxHash    string
	Attempts  int
	Signal    *models.SignalResponse
	Err       error
}

// Agent runs the settlement state machine against one signal server.
type Agent struct {
	apiURL   string
	source   string
	client   Doer
	payer    Payer
	interval time.Duration
	attempts int
	decimals int32
	metrics  drepo.Metrics
	log      *applogger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Agent)

// WithPolling sets the poll interval and attempt ceiling.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(a *Agent) {
		if interval > 0 {
			a.interval = interval
		}
		if attempts > 0 {
			a.attempts = attempts
		}
	}
}

// WithSource sets the source tag used on audit entries.
func WithSource(source string) Option {
	return func(a *Agent) {
		if source != "" {
			a.source = source
		}
	}
}

func WithClient(c Doer) Option {
	return func(a *Agent) { a.client = c }
}

func WithTokenDecimals(d int32) Option {
	return func(a *Agent) { a.decimals = d }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithSleep replaces the wait between polls.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) { a.sleep = fn }
}

// NewAgent returns an agent paying through payer.
func NewAgent(apiURL string, payer Payer, l *applogger.Logger, opts ...Option) *Agent {
	a := &Agent{
		apiURL:   strings.TrimRight(apiURL, "/"),
		source:   "Agent-007",
		payer:    payer,
		interval: 3 * time.Second,
		attempts: 20,
		decimals: 6,
		metrics:  metrics.Nop{},
		log:      l.With("settlement_agent"),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = xhttp.NewClient(xhttp.WithTimeout(45*time.Second), xhttp.WithUserAgent("x402-agent/1.0"))
	}
	return a
}

// Run executes one settlement. It never pays more than once; every failure
// after negotiation ends the run in ERROR.
func (a *Agent) Run(ctx context.Context, runID string) (res Result) {
	if runID == "" {
		runID = uuid.NewString()
	}
	res = Result{RunID: runID, State: StateScan}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.State = StateError
			res.Err = fmt.Errorf("panic: %v", r)
			a.log.Error("settlement run panicked",
				applogger.String("run_id", runID),
				applogger.Any("panic", r),
				applogger.String("stack", string(debug.Stack())),
			)
			a.emit(ctx, models.ActionError, fmt.Sprintf("Agent Crashed: %v", r))
		}
		a.metrics.RecordSettlement(string(res.State))
		a.metrics.RecordLatency("settlement", time.Since(start).Seconds())
		a.log.Info("settlement finished",
			applogger.String("run_id", runID),
			applogger.String("state", string(res.State)),
			applogger.String("tx", res.TxHash),
			applogger.Int("attempts", res.Attempts),
		)
	}()

	a.emit(ctx, models.ActionStart, "Initializing Autonomous Agent...")
	a.emit(ctx, models.ActionWait, "Scanning market volatility...")

	res.State = StateNegotiate
	a.emit(ctx, models.ActionNegotiate, "Requesting /signal from Market API...")
	resp, err := a.requestSignal(ctx, "")
	if err != nil {
		return a.fail(ctx, res, fmt.Errorf("negotiate: %w", err))
	}
	switch resp.StatusCode {
	case http.StatusPaymentRequired:
	case http.StatusOK:
		// no payment asked for; take the signal as delivered
		return a.deliver(ctx, res, resp)
	default:
		return a.fail(ctx, res, fmt.Errorf("negotiate: unexpected status %d", resp.StatusCode))
	}

	ch, err := ParseChallenge(resp.Header)
	if err != nil {
		return a.fail(ctx, res, err)
	}
	res.Challenge = &ch
	a.emit(ctx, models.ActionNetwork, "HTTP 402: PAYMENT REQUIRED detected.")
	a.emit(ctx, models.ActionBuy, fmt.Sprintf("Contract: %s tokens. Signing transaction...",
		chain.FromMinorUnits(ch.Price, a.decimals).String()))

	res.State = StateBuildTx
	tx, err := a.payer.BuildTransfer(ctx, ch.TokenAddress, ch.PayeeAddress, ch.Price)
	if err != nil {
		return a.fail(ctx, res, err)
	}
	res.State = StateSign
	signed, err := a.payer.Sign(tx)
	if err != nil {
		return a.fail(ctx, res, err)
	}
	res.State = StateBroadcast
	hash, err := a.payer.Broadcast(ctx, signed)
	if err != nil {
		return a.fail(ctx, res, err)
	}
	res.TxHash = hash.Hex()
	a.emit(ctx, models.ActionTxSent, "Broadcasted: "+res.TxHash[:10]+"...")

	return a.poll(ctx, res)
}

func (a *Agent) poll(ctx context.Context, res Result) Result {
	res.State = StatePoll
	a.emit(ctx, models.ActionVerify, "Waiting for block confirmation...")

	for res.Attempts < a.attempts {
		if err := a.sleep(ctx, a.interval); err != nil {
			return a.fail(ctx, res, err)
		}
		res.Attempts++
		resp, err := a.requestSignal(ctx, res.TxHash)
		if err != nil && ctx.Err() == nil && isTimeout(err) {
			// the server may still be waiting on the receipt; the payment stands
			a.log.Warn("signal request timed out",
				applogger.String("run_id", res.RunID),
				applogger.Int("attempt", res.Attempts),
				applogger.Error(err),
			)
			a.emit(ctx, models.ActionWait, "Verifying payment...")
			continue
		}
		if err != nil {
			return a.fail(ctx, res, fmt.Errorf("poll %d: %w", res.Attempts, err))
		}
		if resp.StatusCode == http.StatusOK {
			return a.deliver(ctx, res, resp)
		}
		a.emit(ctx, models.ActionWait, "Verifying payment...")
	}

	res.State = StateTimeout
	a.emit(ctx, models.ActionTimeout, fmt.Sprintf("No confirmation after %d attempts (tx %s)", res.Attempts, res.TxHash))
	return res
}

func (a *Agent) deliver(ctx context.Context, res Result, resp *xhttp.Response) Result {
	var sig models.SignalResponse
	if err := json.Unmarshal(resp.Body, &sig); err != nil {
		return a.fail(ctx, res, fmt.Errorf("decode signal: %w", err))
	}
	res.State = StateDelivered
	res.Signal = &sig
	a.emit(ctx, models.ActionDelivered, Summary(&sig))
	return res
}

func (a *Agent) fail(ctx context.Context, res Result, err error) Result {
	a.log.Error("settlement failed",
		applogger.String("run_id", res.RunID),
		applogger.String("state", string(res.State)),
		applogger.Error(err),
	)
	res.Err = err
	res.State = StateError
	a.emit(ctx, models.ActionError, "Agent Crashed: "+err.Error())
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (a *Agent) requestSignal(ctx context.Context, proof string) (*xhttp.Response, error) {
	opts := &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: a.apiURL + "/signal"}
	if proof != "" {
		opts.Headers = map[string]string{"Authorization": proof}
	}
	return a.client.Do(ctx, opts)
}

// emit posts an audit entry to the server. Failures are logged and dropped.
func (a *Agent) emit(ctx context.Context, action, message string) {
	a.log.Info(message, applogger.String("action", action))
	resp, err := a.client.Do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    a.apiURL + "/log",
		Body:   models.LogRequest{Source: a.source, Action: action, Message: message},
	})
	if err != nil {
		a.log.Warn("dashboard offline", applogger.String("action", action), applogger.Error(err))
		return
	}
	if resp.StatusCode >= 300 {
		a.log.Warn("audit log refused", applogger.String("action", action), applogger.Int("status", resp.StatusCode))
	}
}

// ParseChallenge reads the x-402 headers of a 402 response.
func ParseChallenge(h http.Header) (models.Challenge, error) {
	price, ok := new(big.Int).SetString(strings.TrimSpace(h.Get(models.HeaderPrice)), 10)
	if !ok || price.Sign() <= 0 {
		return models.Challenge{}, fmt.Errorf("challenge: invalid price %q", h.Get(models.HeaderPrice))
	}
	payee, err := chain.ParseAddress(h.Get(models.HeaderAddress))
	if err != nil {
		return models.Challenge{}, fmt.Errorf("challenge payee: %w", err)
	}
	token, err := chain.ParseAddress(h.Get(models.HeaderToken))
	if err != nil {
		return models.Challenge{}, fmt.Errorf("challenge token: %w", err)
	}
	return models.Challenge{Price: price, PayeeAddress: payee, TokenAddress: token}, nil
}

// Summary renders a delivered signal as one audit line.
func Summary(s *models.SignalResponse) string {
	d := s.Data.Details
	news := d.News
	if len(news) > 50 {
		news = news[:50] + ".."
	}
	return fmt.Sprintf("%s (%.1f%%) | %q | RSI:%.2f | MOM:%.4f | VOL:%.4f | Asset:%s | PnL:%.2f | Eq:%.2f | NEWS:%s",
		s.Data.Signal, s.Data.Confidence, d.Reasoning, d.RSI, d.Momentum, d.Volatility, d.Asset, d.PnL, d.Equity, news)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
