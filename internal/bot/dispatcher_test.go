package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// serialHandler verifies that events of the same user never overlap.
type serialHandler struct {
	mu       sync.Mutex
	inFlight map[string]bool
	overlap  bool
	handled  int
	err      error
}

func (h *serialHandler) HandleEvent(_ context.Context, event models.Event) error {
	h.mu.Lock()
	if h.inFlight[event.From] {
		h.overlap = true
	}
	h.inFlight[event.From] = true
	h.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	h.mu.Lock()
	h.inFlight[event.From] = false
	h.handled++
	h.mu.Unlock()
	return h.err
}

type apologyRecorder struct {
	mu   sync.Mutex
	sent []string
}

func (m *apologyRecorder) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (m *apologyRecorder) SendMessage(_ context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

func (m *apologyRecorder) SendMessageWithButtons(_ context.Context, to string, body string, _ []models.Button) error {
	return m.SendMessage(context.Background(), to, body)
}

func (m *apologyRecorder) SendTyping(_ context.Context, _ string) error { return nil }
func (m *apologyRecorder) Start(_ context.Context) error                { return nil }
func (m *apologyRecorder) Stop() error                                  { return nil }
func (m *apologyRecorder) Events() <-chan models.Event                  { return nil }

func TestDispatchSerializesPerUser(t *testing.T) {
	handler := &serialHandler{inFlight: make(map[string]bool)}
	d := NewDispatcher(handler, &apologyRecorder{})
	ctx := context.Background()

	for range 5 {
		d.Dispatch(ctx, models.Event{Kind: models.EventKindText, From: "user-a", Body: "hola"})
		d.Dispatch(ctx, models.Event{Kind: models.EventKindText, From: "user-b", Body: "hola"})
	}
	d.Wait()

	if handler.overlap {
		t.Error("events for the same user overlapped")
	}
	if handler.handled != 10 {
		t.Errorf("expected 10 handled events, got %d", handler.handled)
	}
}

func TestDispatchSendsApologyOnHandlerError(t *testing.T) {
	handler := &serialHandler{inFlight: make(map[string]bool), err: errors.New("boom")}
	msg := &apologyRecorder{}
	d := NewDispatcher(handler, msg)

	d.Dispatch(context.Background(), models.Event{Kind: models.EventKindText, From: "user-a", Body: "hola"})
	d.Wait()

	if len(msg.sent) != 1 || msg.sent[0] != msgUnexpectedError {
		t.Errorf("expected generic apology, got %v", msg.sent)
	}
}

// canonicalizingMessenger trims recipients and rejects non-numeric ids,
// like the Telegram transport does.
type canonicalizingMessenger struct {
	apologyRecorder
}

func (m *canonicalizingMessenger) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	trimmed := strings.TrimSpace(recipient)
	if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
		return "", fmt.Errorf("invalid recipient %q", recipient)
	}
	return trimmed, nil
}

// captureHandler records the sender of each handled event.
type captureHandler struct {
	mu   sync.Mutex
	from []string
}

func (h *captureHandler) HandleEvent(_ context.Context, event models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.from = append(h.from, event.From)
	return nil
}

func TestDispatchCanonicalizesSenderAndDropsInvalid(t *testing.T) {
	handler := &captureHandler{}
	msg := &canonicalizingMessenger{}
	d := NewDispatcher(handler, msg)
	ctx := context.Background()

	d.Dispatch(ctx, models.Event{Kind: models.EventKindText, From: " 42 ", Body: "hola"})
	d.Dispatch(ctx, models.Event{Kind: models.EventKindText, From: "not-a-chat", Body: "hola"})
	d.Wait()

	if len(handler.from) != 1 || handler.from[0] != "42" {
		t.Errorf("expected one event with canonical sender, got %v", handler.from)
	}
	if len(msg.sent) != 0 {
		t.Errorf("expected no replies for the dropped event, got %v", msg.sent)
	}
}

type panickyHandler struct{}

func (panickyHandler) HandleEvent(_ context.Context, _ models.Event) error {
	panic("nil map write")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	msg := &apologyRecorder{}
	d := NewDispatcher(panickyHandler{}, msg)

	d.Dispatch(context.Background(), models.Event{Kind: models.EventKindButton, From: "user-a", ActionData: "diff_3"})
	d.Wait()

	if len(msg.sent) != 1 || msg.sent[0] != msgUnexpectedError {
		t.Errorf("expected generic apology after panic, got %v", msg.sent)
	}
}
