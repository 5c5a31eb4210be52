package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	dservice "X402/internal/domain/service"
	applogger "X402/pkg/logger"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	fallbackBand  = 0.15
	entryMinConf  = 10.0
)

// TradeLedger is the part of the ledger the engine drives.
type TradeLedger interface {
	Cycle(ctx context.Context, asset string, price float64, wantOpen bool) (models.CycleResult, error)
	Stats() models.Stats
}

// Evaluation is the outcome of one decision cycle.
type Evaluation struct {
	Snapshot    models.DecisionSnapshot
	Verdict     models.Verdict
	Fallback    bool
	Cycle       models.CycleResult
	TradeStatus string
}

// DecisionEngine fuses the classifier, the RSI rule and the oracle into one
// verdict and drives the ledger with it.
type DecisionEngine struct {
	market  dservice.MarketSnapshotBuilder
	fleet   dservice.ClassifierFleet
	oracle  dservice.Oracle
	news    dservice.NewsSource
	ledger  TradeLedger
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewDecisionEngine(
	market dservice.MarketSnapshotBuilder,
	fleet dservice.ClassifierFleet,
	oracle dservice.Oracle,
	news dservice.NewsSource,
	ledger TradeLedger,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *DecisionEngine {
	return &DecisionEngine{
		market:  market,
		fleet:   fleet,
		oracle:  oracle,
		news:    news,
		ledger:  ledger,
		metrics: metrics,
		log:     l.With("decision_engine"),
	}
}

// Evaluate runs one cycle for asset with the given classifier weight.
// Collaborator failures degrade to defaults; only a ledger write failure
// is returned as an error.
func (e *DecisionEngine) Evaluate(ctx context.Context, asset string, weight float64) (*Evaluation, error) {
	start := time.Now()
	defer func() { e.metrics.RecordLatency("evaluate", time.Since(start).Seconds()) }()

	mode := models.RiskModeFor(weight)
	snap, err := e.market.Snapshot(ctx, asset)
	if err != nil {
		e.log.Warn("market snapshot unavailable", applogger.String("asset", asset), applogger.Error(err))
		e.metrics.RecordError("market")
		return &Evaluation{
			Snapshot: models.DecisionSnapshot{Asset: asset, RiskWeight: weight, RiskMode: mode},
			Verdict: models.Verdict{
				Signal:    models.SignalError,
				Reasoning: fmt.Sprintf("Market data unavailable for %s.", asset),
			},
			Cycle:       models.CycleResult{Stats: e.ledger.Stats()},
			TradeStatus: models.TradeScanning,
		}, nil
	}

	vote := e.classify(ctx, asset, snap)
	rule := RuleVote(snap.RSI)
	score := BlendScore(vote.Vote, rule, weight)

	ds := models.DecisionSnapshot{
		Asset:      asset,
		Market:     *snap,
		Classifier: vote,
		RuleVote:   rule,
		RiskWeight: weight,
		RiskMode:   mode,
		Score:      score,
		News:       e.digest(ctx),
	}

	verdict := e.advise(ctx, ds)
	fallback := verdict.IsUnavailable()
	if fallback {
		verdict = FallbackVerdict(score, mode)
	}
	e.metrics.RecordVerdict(string(verdict.Signal), fallback)

	wantOpen := verdict.Signal == models.SignalBuy && verdict.Confidence > entryMinConf
	cycle, err := e.ledger.Cycle(ctx, asset, snap.Price, wantOpen)
	if err != nil {
		return nil, fmt.Errorf("ledger cycle: %w", err)
	}

	status := models.TradeScanning
	switch {
	case cycle.Opened != nil:
		status = models.TradeOpened
	case cycle.InsufficientFunds:
		status = models.TradeInsufficientFunds
	}
	if cycle.RealizedPnL > 0 {
		verdict.Reasoning = fmt.Sprintf("PROFIT TAKEN! Sold position for +$%.2f. ", cycle.RealizedPnL) + verdict.Reasoning
	}

	e.log.Info("decision",
		applogger.String("asset", asset),
		applogger.String("signal", string(verdict.Signal)),
		applogger.Float64("confidence", verdict.Confidence),
		applogger.Float64("score", score),
		applogger.Bool("fallback", fallback),
		applogger.String("trade_status", status),
	)

	return &Evaluation{
		Snapshot:    ds,
		Verdict:     verdict,
		Fallback:    fallback,
		Cycle:       cycle,
		TradeStatus: status,
	}, nil
}

func (e *DecisionEngine) classify(ctx context.Context, asset string, snap *models.MarketSnapshot) models.ClassifierVote {
	c, ok := e.fleet.For(asset)
	if !ok {
		return models.NoOpinion
	}
	probs, err := c.Predict(ctx, snap.Features())
	if err != nil {
		e.log.Warn("classifier failed", applogger.String("asset", asset), applogger.Error(err))
		e.metrics.RecordError("classifier")
		return models.NoOpinion
	}
	return ClassifierVoteFor(probs)
}

func (e *DecisionEngine) digest(ctx context.Context) string {
	d, err := e.news.Digest(ctx)
	if err != nil {
		e.log.Warn("news unavailable", applogger.Error(err))
		e.metrics.RecordError("news")
		return models.NewsOffline
	}
	if d == "" {
		return models.NewsEmpty
	}
	return d
}

func (e *DecisionEngine) advise(ctx context.Context, ds models.DecisionSnapshot) models.Verdict {
	v, err := e.oracle.Advise(ctx, ds)
	if err != nil {
		e.log.Warn("oracle unavailable", applogger.String("asset", ds.Asset), applogger.Error(err))
		e.metrics.RecordError("oracle")
		return models.OracleUnavailable
	}
	return v
}

// RuleVote is +1 below RSI 30, -1 above RSI 70, 0 otherwise.
func RuleVote(rsi float64) int {
	switch {
	case rsi < rsiOversold:
		return 1
	case rsi > rsiOverbought:
		return -1
	default:
		return 0
	}
}

// ClassifierVoteFor turns [p_down, p_up] into a vote. Ties go to SELL.
func ClassifierVoteFor(probs [2]float64) models.ClassifierVote {
	if probs[1] > probs[0] {
		return models.ClassifierVote{Signal: models.SignalBuy, Confidence: probs[1] * 100, Vote: 1}
	}
	return models.ClassifierVote{Signal: models.SignalSell, Confidence: probs[0] * 100, Vote: -1}
}

// BlendScore weights the classifier vote against the rule vote.
func BlendScore(classifierVote, ruleVote int, weight float64) float64 {
	return float64(classifierVote)*weight + float64(ruleVote)*(1-weight)
}

// FallbackVerdict derives a verdict from the blended score alone.
func FallbackVerdict(score float64, mode models.RiskMode) models.Verdict {
	reason := fmt.Sprintf("Oracle offline. Using %s weights.", mode)
	switch {
	case score > fallbackBand:
		return models.Verdict{Signal: models.SignalBuy, Confidence: 50 + score*50, Reasoning: reason}
	case score < -fallbackBand:
		return models.Verdict{Signal: models.SignalSell, Confidence: 50 + math.Abs(score)*50, Reasoning: reason}
	default:
		return models.Verdict{Signal: models.SignalWait, Confidence: 0, Reasoning: reason}
	}
}
