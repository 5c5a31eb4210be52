package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"X402/internal/domain/models"
	applogger "X402/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const runLockKey = "settlement:run"

// Locker guards against overlapping runs. pkg/cache services satisfy it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Runner starts agent runs in the background, one at a time, on demand
// and on an optional cron schedule.
type Runner struct {
	agent   *Agent
	locker  Locker
	lockTTL time.Duration
	cron    *cron.Cron
	log     *applogger.Logger

	mu      sync.Mutex
	base    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	results chan<- Result
}

// NewRunner returns a runner for agent. A nil agent makes every trigger
// fail with ErrAgentUnavailable. schedule may be empty.
func NewRunner(agent *Agent, locker Locker, schedule string, l *applogger.Logger) (*Runner, error) {
	r := &Runner{
		agent:  agent,
		locker: locker,
		log:    l.With("settlement_runner"),
		base:   context.Background(),
	}
	if agent != nil {
		r.lockTTL = time.Duration(agent.attempts)*agent.interval + 2*time.Minute
	}
	if schedule != "" {
		r.cron = cron.New()
		if _, err := r.cron.AddFunc(schedule, r.scheduled); err != nil {
			return nil, fmt.Errorf("agent schedule %q: %w", schedule, err)
		}
	}
	return r, nil
}

// Start arms the schedule. Runs started afterwards stop when ctx ends.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.base, r.stop = context.WithCancel(ctx)
	r.mu.Unlock()
	if r.cron != nil {
		r.cron.Start()
		r.log.Info("agent schedule started")
	}
}

// Stop halts the schedule and waits for in-flight runs.
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.mu.Lock()
	if r.stop != nil {
		r.stop()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Trigger starts one run in the background and returns its id.
func (r *Runner) Trigger(ctx context.Context) (string, error) {
	if r.agent == nil {
		return "", models.ErrAgentUnavailable
	}
	ok, err := r.locker.TryLock(ctx, runLockKey, r.lockTTL)
	if err != nil {
		return "", fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return "", models.ErrAgentBusy
	}

	runID := uuid.NewString()
	r.mu.Lock()
	base := r.base
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := r.locker.Unlock(context.Background(), runLockKey); err != nil {
				r.log.Warn("release run lock", applogger.Error(err))
			}
		}()
		res := r.agent.Run(base, runID)
		if r.results != nil {
			r.results <- res
		}
	}()
	return runID, nil
}

func (r *Runner) scheduled() {
	id, err := r.Trigger(context.Background())
	switch {
	case err == nil:
		r.log.Info("scheduled run started", applogger.String("run_id", id))
	case errors.Is(err, models.ErrAgentBusy):
		r.log.Info("scheduled run skipped, previous run still active")
	default:
		r.log.Warn("scheduled run failed to start", applogger.Error(err))
	}
}
