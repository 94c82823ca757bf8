package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type senderFunc func(ctx context.Context, task Task) error

func (f senderFunc) Send(ctx context.Context, task Task) error { return f(ctx, task) }

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestQueue(sender Sender, mutate func(*Options)) (*Queue, *testclock.Clock) {
	clk := testclock.NewClock(epoch)
	opts := Options{
		Interval:    time.Second,
		Workers:     2,
		MaxAttempts: 3,
		BaseDelay:   10 * time.Second,
		Clock:       clk,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(sender, opts), clk
}

func admin(msg string) AdminNotification { return AdminNotification{Subject: "s", Message: msg} }

func TestDue_PriorityThenInsertionOrder(t *testing.T) {
	q, _ := newTestQueue(senderFunc(func(context.Context, Task) error { return nil }), nil)

	low, _ := q.Enqueue(TypeAdminNotification, admin("low"), PriorityLow)
	high1, _ := q.Enqueue(TypeAdminNotification, admin("high1"), PriorityHigh)
	normal, _ := q.Enqueue(TypeAdminNotification, admin("normal"), PriorityNormal)
	high2, _ := q.Enqueue(TypeAdminNotification, admin("high2"), PriorityHigh)

	var ids []string
	for _, task := range q.Due() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{high1, high2, normal, low}, ids)
	assert.Equal(t, 4, q.Len())
}

func TestDue_ScheduledForDefers(t *testing.T) {
	q, clk := newTestQueue(senderFunc(func(context.Context, Task) error { return nil }), nil)

	_, err := q.EnqueueAt(TypeAdminNotification, admin("later"), PriorityNormal, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, q.Due())

	clk.Advance(time.Minute)
	assert.Len(t, q.Due(), 1)
}

func TestRunOnce_SuccessRemovesTask(t *testing.T) {
	var sent []string
	var mu sync.Mutex
	q, _ := newTestQueue(senderFunc(func(_ context.Context, task Task) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, task.ID)
		return nil
	}), nil)

	id, err := q.Enqueue(TypeOrderConfirmation, OrderConfirmation{OrderNumber: "ORD-1", CustomerEmail: "a@b.c"}, PriorityHigh)
	require.NoError(t, err)

	q.RunOnce(context.Background())
	assert.Equal(t, []string{id}, sent)
	assert.Equal(t, 0, q.Len())
}

func TestRunOnce_BackoffDoublesPerAttempt(t *testing.T) {
	q, clk := newTestQueue(senderFunc(func(context.Context, Task) error { return errors.New("smtp down") }), nil)
	_, err := q.Enqueue(TypeAdminNotification, admin("x"), PriorityNormal)
	require.NoError(t, err)

	q.RunOnce(context.Background())
	assert.Empty(t, q.Due())

	clk.Advance(19 * time.Second)
	assert.Empty(t, q.Due(), "first retry is base x 2^1 away")
	clk.Advance(time.Second)
	due := q.Due()
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)
	assert.Equal(t, "smtp down", due[0].LastError)

	assert.Equal(t, 40*time.Second, q.Backoff(2))
}

func TestRunOnce_DropsAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	q, clk := newTestQueue(senderFunc(func(context.Context, Task) error {
		calls.Add(1)
		return errors.New("rejected")
	}), nil)
	_, err := q.Enqueue(TypeAdminNotification, admin("x"), PriorityNormal)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.Len(t, q.Due(), 1, "poll %d", i+1)
		q.RunOnce(context.Background())
		clk.Advance(q.Backoff(i + 1))
	}
	assert.Equal(t, int32(3), calls.Load())

	assert.Empty(t, q.Due(), "fourth poll")
	q.RunOnce(context.Background())
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, q.Len())
}

func TestRunOnce_SingleFlightPerTask(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	q, _ := newTestQueue(senderFunc(func(context.Context, Task) error {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return nil
	}), nil)
	_, err := q.Enqueue(TypeAdminNotification, admin("x"), PriorityNormal)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		q.RunOnce(context.Background())
		close(done)
	}()
	<-started

	assert.Empty(t, q.Due())
	q.RunOnce(context.Background())
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-done
	assert.Equal(t, 0, q.Len())
}

func TestRunOnce_BoundedConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	q, _ := newTestQueue(senderFunc(func(context.Context, Task) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return nil
	}), func(o *Options) { o.Workers = 2 })

	for i := 0; i < 6; i++ {
		_, err := q.Enqueue(TypeAdminNotification, admin("x"), PriorityNormal)
		require.NoError(t, err)
	}
	q.RunOnce(context.Background())

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 0, q.Len())
}

func TestEnqueue_Validation(t *testing.T) {
	q, _ := newTestQueue(senderFunc(func(context.Context, Task) error { return nil }), nil)

	_, err := q.Enqueue(Type("sms"), admin("x"), PriorityHigh)
	assert.Error(t, err)
	_, err = q.Enqueue(TypeAdminNotification, nil, PriorityHigh)
	assert.Error(t, err)

	_, err = q.Enqueue(TypeAdminNotification, admin("x"), Priority(42))
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, q.Due()[0].Priority)
}

func TestStartStop_DispatchesOnInterval(t *testing.T) {
	delivered := make(chan string, 1)
	q, clk := newTestQueue(senderFunc(func(_ context.Context, task Task) error {
		delivered <- task.ID
		return nil
	}), nil)
	id, err := q.Enqueue(TypeAdminNotification, admin("x"), PriorityHigh)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	require.NoError(t, clk.WaitAdvance(time.Second, 5*time.Second, 1))

	select {
	case got := <-delivered:
		assert.Equal(t, id, got)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not dispatched")
	}
	q.Stop()
}

func TestStop_WithoutStart(t *testing.T) {
	q, _ := newTestQueue(senderFunc(func(context.Context, Task) error { return nil }), nil)
	q.Stop()
	q.Stop()
}
