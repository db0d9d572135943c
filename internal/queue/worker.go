package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"
)

const (
	maxAttempts    = 3
	costPerItem    = 0.01
	dailyBudget    = 10.0
	rateWindow     = 60 * time.Second
	rateWindowCap  = 10
	idleSleep      = 200 * time.Millisecond
)

// ResultHandler persists the outcome of a validated finding. Queue
// stays decoupled from internal/store so it can be unit tested with a
// fake.
type ResultHandler interface {
	OnValid(ctx context.Context, item *Item, resp ValidationResponse) error
	OnInvalid(ctx context.Context, item *Item) error
	OnDropped(ctx context.Context, item *Item) error
}

// Stats mirrors the queue's public counters per spec.md §4.4.
type Stats struct {
	Waiting         int
	Completed       int
	Failed          int
	TotalCost       float64
	BudgetRemaining float64
	Paused          bool
}

// Worker is the single scheduler loop (MAX_CONCURRENT=1) draining the
// queue, per spec.md §4.4.
type Worker struct {
	queue     *Queue
	validator Validator
	handler   ResultHandler
	limiter   *rate.Limiter

	mu          sync.Mutex
	paused      bool
	manualPause bool
	costToday   float64
	dayStart    time.Time
	completed   int
	failed      int
}

func NewWorker(q *Queue, v Validator, h ResultHandler) *Worker {
	return &Worker{
		queue:     q,
		validator: v,
		handler:   h,
		limiter:   rate.NewLimiter(rate.Every(rateWindow/rateWindowCap), rateWindowCap),
		dayStart:  startOfDay(time.Now()),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Pause toggles the manual global switch; while paused, Run drops no
// work but stops dequeuing.
func (w *Worker) Pause(paused bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.manualPause = paused
}

func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Waiting:         w.queue.Len(),
		Completed:       w.completed,
		Failed:          w.failed,
		TotalCost:       w.costToday,
		BudgetRemaining: dailyBudget - w.costToday,
		Paused:          w.manualPause || w.paused,
	}
}

// Run drains the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.resetIfNewDay(time.Now())

		if w.isPaused() {
			sleep(ctx, idleSleep)
			continue
		}

		if w.queue.Len() == 0 {
			sleep(ctx, idleSleep)
			continue
		}

		reservation := w.limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			sleep(ctx, delay)
			continue
		}

		item, ok := w.queue.Dequeue()
		if !ok {
			continue
		}
		w.process(ctx, item)
	}
}

func (w *Worker) isPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.manualPause || w.paused
}

func (w *Worker) resetIfNewDay(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	today := startOfDay(now)
	if today.After(w.dayStart) {
		w.dayStart = today
		w.costToday = 0
		w.paused = false
	}
}

func (w *Worker) process(ctx context.Context, item *Item) {
	req := buildRequest(item)

	resp, err := w.validator.Validate(ctx, req)
	if err != nil {
		item.Attempts++
		if item.Attempts >= maxAttempts {
			w.mu.Lock()
			w.failed++
			w.mu.Unlock()
			log.Warn("validator attempts exhausted, dropping finding", "component", "queue", "findingId", item.Finding.ID)
			if herr := w.handler.OnDropped(ctx, item); herr != nil {
				log.Error("failed to record dropped finding", "component", "queue", "err", herr)
			}
			return
		}
		backoff := time.Duration(1<<uint(item.Attempts)) * time.Second
		log.Debug("validator call failed, retrying", "component", "queue", "attempt", item.Attempts, "backoff", backoff)
		sleep(ctx, backoff)
		w.queue.Requeue(item)
		return
	}

	var herr error
	if resp.Valid {
		herr = w.handler.OnValid(ctx, item, resp)
	} else {
		herr = w.handler.OnInvalid(ctx, item)
	}
	if herr != nil {
		log.Error("failed to persist validator outcome", "component", "queue", "err", herr)
	}

	w.mu.Lock()
	w.completed++
	w.costToday += costPerItem
	if w.costToday >= dailyBudget {
		w.paused = true
		log.Warn("daily validation budget exhausted, pausing until midnight reset", "component", "queue")
	}
	w.mu.Unlock()
}

func buildRequest(item *Item) ValidationRequest {
	var req ValidationRequest
	req.Finding.Type = item.Finding.Type
	req.Finding.Function = item.Finding.FunctionName
	req.Finding.Line = item.Finding.Line
	req.Finding.CodeSnippet = item.Finding.CodeSnippet
	req.Finding.RuleConfidence = item.Finding.RuleConfidence
	req.ContractContext = item.Finding.ContractAddress
	req.SessionID = item.Finding.ID
	return req
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
