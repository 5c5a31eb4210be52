package usecase

import (
	"context"
	"sync"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	applogger "X402/pkg/logger"
	"X402/pkg/util"
)

// AuditLog appends entries to the log store and fans them out to live
// subscribers. Slow subscribers drop entries rather than block writers.
type AuditLog struct {
	store drepo.LogStore
	log   *applogger.Logger
	now   func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.LogEntry
}

func NewAuditLog(store drepo.LogStore, l *applogger.Logger) *AuditLog {
	return &AuditLog{
		store: store,
		log:   l.With("audit"),
		now:   time.Now,
		subs:  make(map[int]chan models.LogEntry),
	}
}

// Record stamps and stores an entry.
func (a *AuditLog) Record(ctx context.Context, source, action, message string) error {
	e := models.LogEntry{
		Source:    source,
		Action:    action,
		Message:   message,
		Timestamp: a.now().UTC(),
	}
	if err := a.store.Append(ctx, e); err != nil {
		a.log.Warn("audit append failed", applogger.String("action", action), applogger.Error(err))
		return err
	}
	a.broadcast(e)
	return nil
}

// Recent returns up to n entries, newest first, capped at MaxRecentLogs.
func (a *AuditLog) Recent(ctx context.Context, n int) ([]models.LogEntry, error) {
	return a.store.Recent(ctx, util.Clamp(n, 1, models.MaxRecentLogs))
}

func (a *AuditLog) Clear(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// Subscribe returns a channel of new entries and a cancel func.
func (a *AuditLog) Subscribe(buffer int) (<-chan models.LogEntry, func()) {
	ch := make(chan models.LogEntry, buffer)
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
			close(ch)
		})
	}
}

func (a *AuditLog) broadcast(e models.LogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
