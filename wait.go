package longpoll

import (
	"context"
	"sync"
	"time"
)

type Outcome int

const (
	Pending Outcome = iota
	Delivered
	TimedOut
	Aborted
)

func (this Outcome) String() string {
	switch this {
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	case TimedOut:
		return "timed out"
	case Aborted:
		return "aborted"
	}

	return "unknown"
}

// Result is how a WaitLoop resolved. Item is only set when Outcome is
// Delivered.
type Result struct {
	Outcome    Outcome
	Item       Item
	StartedAt  time.Time
	ResolvedAt time.Time
}

func (this Result) Elapsed() time.Duration {
	return this.ResolvedAt.Sub(this.StartedAt)
}

// WaitLoop polls a Mailbox until it yields an Item or the deadline passes. A
// WaitLoop resolves exactly once.
type WaitLoop struct {
	mailbox  *Mailbox
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time

	once   sync.Once
	result Result
}

func NewWaitLoop(mb *Mailbox, timeout, interval time.Duration) *WaitLoop {
	return &WaitLoop{mailbox: mb, timeout: timeout, interval: interval, now: time.Now}
}

// Wait blocks until the loop resolves and returns its Result. The deadline is
// counted from the first call. Once ctx is done the Mailbox is not read again
// and the result is Aborted. Later calls return the first Result.
func (this *WaitLoop) Wait(ctx context.Context) Result {
	this.once.Do(func() {
		this.result = this.run(ctx)
	})

	return this.result
}

func (this *WaitLoop) run(ctx context.Context) Result {
	var (
		started  = this.now()
		deadline = started.Add(this.timeout)
		timer    *time.Timer
	)

	resolve := func(o Outcome, item Item) Result {
		if timer != nil {
			timer.Stop()
		}

		return Result{Outcome: o, Item: item, StartedAt: started, ResolvedAt: this.now()}
	}

	for {
		if ctx.Err() != nil {
			return resolve(Aborted, Item{})
		}

		// Data found right at the deadline still wins.
		if item, ok := this.mailbox.TryRead(); ok {
			return resolve(Delivered, item)
		}

		now := this.now()
		if !now.Before(deadline) {
			return resolve(TimedOut, Item{})
		}

		sleep := minDuration(this.interval, deadline.Sub(now))

		if timer == nil {
			timer = time.NewTimer(sleep)
		} else {
			timer.Reset(sleep)
		}

		select {
		case <-ctx.Done():
			return resolve(Aborted, Item{})
		case <-timer.C:
		}
	}
}
