package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calcmentor/CalcMentor/internal/messaging"
	"github.com/calcmentor/CalcMentor/internal/models"
)

// msgUnexpectedError is the generic apology sent when an event handler
// fails or panics.
const msgUnexpectedError = "Lo siento, ocurrió un error inesperado. He notificado a mi desarrollador."

// EventHandler processes one inbound event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event models.Event) error
}

// Dispatcher fans events out to per-event goroutines while serializing
// events of the same user, so concurrent updates from one chat can never
// race on the stored conversation record.
type Dispatcher struct {
	handler EventHandler
	msg     messaging.Service

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher sending error apologies through msg.
func NewDispatcher(handler EventHandler, msg messaging.Service) *Dispatcher {
	return &Dispatcher{
		handler:   handler,
		msg:       msg,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Run consumes events from the channel until it closes or the context is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan models.Event) {
	slog.Debug("Dispatcher Run starting")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Dispatcher stopping due to context cancellation")
			return
		case event, ok := <-events:
			if !ok {
				slog.Debug("Dispatcher event channel closed")
				return
			}
			d.Dispatch(ctx, event)
		}
	}
}

// Dispatch handles one event in its own goroutine, holding the user's
// lock for the duration of the handler. The sender is canonicalized by
// the messaging service first so the lock and the stored record key on
// the same identifier; events with an invalid sender are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event) {
	canonical, err := d.msg.ValidateAndCanonicalizeRecipient(event.From)
	if err != nil {
		slog.Warn("Dispatcher dropping event with invalid sender", "from", event.From, "error", err)
		return
	}
	event.From = canonical

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		lock := d.userLock(event.From)
		lock.Lock()
		defer lock.Unlock()

		d.handleSafely(ctx, event)
	}()
}

// Wait blocks until all in-flight handlers finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// handleSafely runs the handler with panic recovery. Any failure results
// in a generic apology; the user's stored state is whatever the handler
// committed before failing.
func (d *Dispatcher) handleSafely(ctx context.Context, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher handler panicked", "user", event.From, "kind", event.Kind, "panic", r)
			d.apologize(ctx, event.From)
		}
	}()

	if err := d.handler.HandleEvent(ctx, event); err != nil {
		slog.Error("Dispatcher handler failed", "user", event.From, "kind", event.Kind, "error", err)
		d.apologize(ctx, event.From)
	}
}

func (d *Dispatcher) apologize(ctx context.Context, userID string) {
	if err := d.msg.SendMessage(ctx, userID, msgUnexpectedError); err != nil {
		slog.Error("Dispatcher failed to send error apology", "user", userID, "error", err)
	}
}

func (d *Dispatcher) userLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.userLocks[userID] = lock
	}
	return lock
}
