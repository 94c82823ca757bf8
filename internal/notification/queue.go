// Package notification delivers follow-up messages outside request lifetimes.
// A Queue holds pending tasks in memory and a background loop dispatches the
// due ones on a fixed interval through a Sender.
package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"
)

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, task Task) error
}

type Options struct {
	Interval    time.Duration
	Workers     int
	MaxAttempts int
	BaseDelay   time.Duration
	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration
	Clock       clock.Clock
	Logger      *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 30 * time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

type Queue struct {
	sender Sender
	opts   Options

	mu       sync.Mutex
	seq      uint64
	tasks    map[string]*Task
	inFlight map[string]struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func New(sender Sender, opts Options) *Queue {
	return &Queue{
		sender:   sender,
		opts:     opts.withDefaults(),
		tasks:    make(map[string]*Task),
		inFlight: make(map[string]struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enqueue adds a task that is due immediately and returns its id.
func (q *Queue) Enqueue(typ Type, payload any, priority Priority) (string, error) {
	return q.enqueue(typ, payload, priority, nil)
}

// EnqueueAt adds a task that becomes due at at.
func (q *Queue) EnqueueAt(typ Type, payload any, priority Priority, at time.Time) (string, error) {
	return q.enqueue(typ, payload, priority, &at)
}

func (q *Queue) enqueue(typ Type, payload any, priority Priority, at *time.Time) (string, error) {
	if !typ.valid() {
		return "", fmt.Errorf("notification: unknown task type %q", typ)
	}
	if payload == nil {
		return "", errors.New("notification: payload is required")
	}
	if priority < PriorityHigh || priority > PriorityLow {
		priority = PriorityNormal
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	t := &Task{
		ID:           uuid.NewString(),
		Type:         typ,
		Payload:      payload,
		Priority:     priority,
		MaxAttempts:  q.opts.MaxAttempts,
		ScheduledFor: at,
		CreatedAt:    q.opts.Clock.Now(),
		seq:          q.seq,
	}
	q.tasks[t.ID] = t
	q.opts.Logger.Printf("notification: enqueued id=%s type=%s priority=%s", t.ID, t.Type, t.Priority)
	return t.ID, nil
}

// Len reports how many tasks are pending, in flight included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Due returns copies of the tasks the dispatcher would pick now, in dispatch
// order. It does not lease them.
func (q *Queue) Due() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	due := q.dueLocked(q.opts.Clock.Now())
	out := make([]Task, len(due))
	for i, t := range due {
		out[i] = *t
	}
	return out
}

func (q *Queue) dueLocked(now time.Time) []*Task {
	var due []*Task
	for id, t := range q.tasks {
		if _, busy := q.inFlight[id]; busy {
			continue
		}
		if t.visible(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority < due[j].Priority
		}
		return due[i].seq < due[j].seq
	})
	return due
}

// RunOnce dispatches every due task, at most Workers at a time, and waits for
// the attempts to finish.
func (q *Queue) RunOnce(ctx context.Context) {
	q.mu.Lock()
	due := q.dueLocked(q.opts.Clock.Now())
	leased := make([]Task, len(due))
	for i, t := range due {
		q.inFlight[t.ID] = struct{}{}
		leased[i] = *t
	}
	q.mu.Unlock()

	if len(leased) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.opts.Workers)
	for _, task := range leased {
		task := task
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(gctx, q.opts.SendTimeout)
			defer cancel()
			q.settle(task, q.sender.Send(sendCtx, task))
			return nil
		})
	}
	_ = g.Wait()
}

func (q *Queue) settle(task Task, sendErr error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, task.ID)

	t, ok := q.tasks[task.ID]
	if !ok {
		return
	}
	if sendErr == nil {
		delete(q.tasks, t.ID)
		q.opts.Logger.Printf("notification: delivered id=%s type=%s attempts=%d", t.ID, t.Type, t.Attempts+1)
		return
	}

	t.Attempts++
	t.LastError = sendErr.Error()
	if t.Attempts >= t.MaxAttempts {
		delete(q.tasks, t.ID)
		q.opts.Logger.Printf("notification: ERROR dropped id=%s type=%s after attempts=%d err=%v", t.ID, t.Type, t.Attempts, sendErr)
		return
	}
	next := q.opts.Clock.Now().Add(q.Backoff(t.Attempts))
	t.ScheduledFor = &next
	q.opts.Logger.Printf("notification: WARN retry id=%s type=%s attempts=%d next=%s err=%v", t.ID, t.Type, t.Attempts, next.Format(time.RFC3339), sendErr)
}

// Backoff is the delay before the retry that follows the given number of
// failed attempts: BaseDelay × 2^attempts.
func (q *Queue) Backoff(attempts int) time.Duration {
	return q.opts.BaseDelay * time.Duration(1<<uint(attempts))
}

// Start runs the dispatch loop until ctx is done or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.loop(ctx)
	})
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.done)
	q.opts.Logger.Printf("notification: dispatcher started interval=%s workers=%d", q.opts.Interval, q.opts.Workers)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case <-q.opts.Clock.After(q.opts.Interval):
			q.RunOnce(ctx)
		}
	}
}

// Stop ends the dispatch loop and waits for in-flight attempts. Pending tasks
// are kept and can still be inspected.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	// never started: nothing to wait for, and a later Start is a no-op
	q.startOnce.Do(func() {
		close(q.done)
	})
	<-q.done
}
