// Package notify delivers best-effort notifications about submission and
// contact events. Delivery failures never affect the operation that
// triggered them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	UserRegistered     EventKind = "user_registered"
	SubmissionCreated  EventKind = "submission_created"
	SubmissionApproved EventKind = "submission_approved"
	SubmissionRejected EventKind = "submission_rejected"
	ContactReceived    EventKind = "contact_received"
)

type Event struct {
	Kind        EventKind
	Username    string
	Name        string
	Email       string
	RewardTitle string
	Points      int
	Reason      string
	Subject     string
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async delivers events on background goroutines so request handlers never
// wait on SMTP or Telegram. Close waits for in-flight deliveries.
type Async struct {
	next    Notifier
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, log *zap.Logger) *Async {
	return &Async{next: next, log: log, timeout: 15 * time.Second}
}

func (a *Async) Notify(_ context.Context, ev Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Notify(ctx, ev); err != nil {
			a.log.Warn("notification failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}()
	return nil
}

func (a *Async) Close() {
	a.wg.Wait()
}
