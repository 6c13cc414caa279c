package messaging

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/calcmentor/CalcMentor/internal/models"
)

func newChannelOnlyService() *TelegramService {
	return &TelegramService{
		events: make(chan models.Event, 1),
		done:   make(chan struct{}),
	}
}

func TestForwardDropsEventsAfterStop(t *testing.T) {
	s := newChannelOnlyService()

	// Fill the buffer so a post-stop forward would otherwise block.
	s.forward(models.Event{Kind: models.EventKindText, From: "1"})
	close(s.done)

	start := time.Now()
	s.forward(models.Event{Kind: models.EventKindText, From: "2"})
	if elapsed := time.Since(start); elapsed >= DefaultChannelTimeout {
		t.Errorf("expected immediate drop after stop, took %s", elapsed)
	}
	if len(s.events) != 1 {
		t.Errorf("expected buffered event untouched, got %d queued", len(s.events))
	}
}

func TestHandleUpdatesClosesEventsOnStop(t *testing.T) {
	s := newChannelOnlyService()
	updates := make(chan tgbotapi.Update)

	go s.handleUpdates(context.Background(), updates)
	close(s.done)

	select {
	case _, ok := <-s.events:
		if ok {
			t.Error("expected closed events channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel was not closed after stop")
	}
}
