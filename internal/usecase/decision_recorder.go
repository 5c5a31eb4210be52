package usecase

import (
	"context"
	"sync"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	applogger "X402/pkg/logger"
)

// DecisionRecorder ships decision events to the configured sink off the
// request path. Sink failures are logged and counted, never returned.
type DecisionRecorder struct {
	sink    drepo.DecisionSink
	backend string
	timeout time.Duration
	metrics drepo.Metrics
	log     *applogger.Logger
	wg      sync.WaitGroup
}

func NewDecisionRecorder(sink drepo.DecisionSink, backend string, metrics drepo.Metrics, l *applogger.Logger) *DecisionRecorder {
	return &DecisionRecorder{
		sink:    sink,
		backend: backend,
		timeout: 10 * time.Second,
		metrics: metrics,
		log:     l.With("decision_recorder"),
	}
}

// Record publishes ev asynchronously. A nil sink makes it a no-op.
func (r *DecisionRecorder) Record(ev *models.DecisionEvent) {
	if r == nil || r.sink == nil || ev == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := r.sink.Publish(ctx, ev); err != nil {
			r.metrics.RecordError("sink_" + r.backend)
			r.log.Warn("decision event not recorded",
				applogger.String("backend", r.backend),
				applogger.String("id", ev.ID),
				applogger.Error(err),
			)
			return
		}
		r.metrics.RecordLatency("sink_"+r.backend, time.Since(start).Seconds())
	}()
}

// Close waits for in-flight events and closes the sink.
func (r *DecisionRecorder) Close() error {
	if r == nil || r.sink == nil {
		return nil
	}
	r.wg.Wait()
	return r.sink.Close()
}
