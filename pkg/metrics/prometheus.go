package metrics

import (
	"X402/internal/domain/models"
	"X402/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "x402"

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	challenges  prometheus.Counter
	payments    *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	trades      *prometheus.CounterVec
	settlements *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	balance     prometheus.Gauge
	equity      prometheus.Gauge
	openTrades  prometheus.Gauge
	latency     *prometheus.HistogramVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New registers the domain metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		challenges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Payment challenges returned to unauthenticated callers",
		}),
		payments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment proofs checked, by outcome",
		}, []string{"outcome"}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verdicts delivered, by signal and source",
		}, []string{"signal", "source"}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_total",
			Help:      "Paper positions opened and closed",
		}, []string{"event"}),
		settlements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_runs_total",
			Help:      "Settlement client runs by terminal state",
		}, []string{"state"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Collaborator errors by kind",
		}, []string{"kind"}),
		balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_cash_balance",
			Help:      "Paper ledger cash balance",
		}),
		equity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_equity",
			Help:      "Paper ledger equity at entry prices",
		}),
		openTrades: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_open_positions",
			Help:      "Open paper positions",
		}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordChallenge() { r.challenges.Inc() }

func (r *Recorder) RecordPayment(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	r.payments.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordVerdict(signal string, fallback bool) {
	source := "oracle"
	if fallback {
		source = "fallback"
	}
	r.verdicts.WithLabelValues(signal, source).Inc()
}

func (r *Recorder) RecordTrades(opened, closed int) {
	if opened > 0 {
		r.trades.WithLabelValues("opened").Add(float64(opened))
	}
	if closed > 0 {
		r.trades.WithLabelValues("closed").Add(float64(closed))
	}
}

func (r *Recorder) RecordLedger(s models.Stats) {
	r.balance.Set(s.Balance)
	r.equity.Set(s.Equity)
	r.openTrades.Set(float64(s.OpenTrades))
}

func (r *Recorder) RecordSettlement(state string) { r.settlements.WithLabelValues(state).Inc() }

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards all measurements.
type Nop struct{}

var _ repository.Metrics = Nop{}

func (Nop) RecordChallenge() {}
func (Nop) RecordPayment(bool) {}
func (Nop) RecordVerdict(string, bool) {}
func (Nop) RecordTrades(int, int) {}
func (Nop) RecordLedger(models.Stats) {}
func (Nop) RecordSettlement(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
