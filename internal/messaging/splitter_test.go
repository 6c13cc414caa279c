package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// recordingService captures sends for splitter tests.
type recordingService struct {
	sent    []string
	buttons [][]models.Button
	failAt  int // 1-based index of the send that fails; 0 means never
}

func (r *recordingService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (r *recordingService) SendMessage(_ context.Context, _ string, body string) error {
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return errors.New("transport down")
	}
	r.sent = append(r.sent, body)
	r.buttons = append(r.buttons, nil)
	return nil
}

func (r *recordingService) SendMessageWithButtons(_ context.Context, _ string, body string, buttons []models.Button) error {
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return errors.New("transport down")
	}
	r.sent = append(r.sent, body)
	r.buttons = append(r.buttons, buttons)
	return nil
}

func (r *recordingService) SendTyping(_ context.Context, _ string) error { return nil }
func (r *recordingService) Start(_ context.Context) error                { return nil }
func (r *recordingService) Stop() error                                  { return nil }
func (r *recordingService) Events() <-chan models.Event                  { return nil }

func TestSplitMessageShortTextUnchanged(t *testing.T) {
	text := "respuesta corta\ncon dos líneas"
	chunks := SplitMessage(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("expected single unchanged chunk, got %d chunks", len(chunks))
	}
}

func TestSplitMessageLongTextOnLineBoundaries(t *testing.T) {
	line := strings.Repeat("x", 100)
	var sb strings.Builder
	for range 90 {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	text := sb.String() // just over 9000 characters

	chunks := SplitMessage(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	totalLines := 0
	for i, chunk := range chunks {
		if len(chunk) > MaxMessageLength {
			t.Errorf("chunk %d exceeds limit: %d", i, len(chunk))
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
		for _, l := range strings.Split(chunk, "\n") {
			if l != line {
				t.Errorf("chunk %d contains split line of length %d", i, len(l))
			}
			totalLines++
		}
	}
	if totalLines != 90 {
		t.Errorf("expected 90 lines across chunks, got %d", totalLines)
	}
}

func TestSplitMessageDropsBlankChunks(t *testing.T) {
	// Enough blank lines between sections to produce a whitespace-only
	// chunk in naive splitting.
	section := strings.Repeat("y", 4000)
	text := section + "\n" + strings.Repeat("\n", 50) + "\n" + section

	for i, chunk := range SplitMessage(text) {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSendLongDeliversInOrder(t *testing.T) {
	line := strings.Repeat("z", 1000)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 10), "\n")

	svc := &recordingService{}
	if err := SendLong(context.Background(), svc, "12345", text); err != nil {
		t.Fatalf("SendLong failed: %v", err)
	}
	if len(svc.sent) < 2 {
		t.Fatalf("expected multiple sends, got %d", len(svc.sent))
	}
	joined := strings.Join(svc.sent, "\n")
	if strings.Count(joined, line) != 10 {
		t.Errorf("expected all 10 lines delivered, got %d", strings.Count(joined, line))
	}
}

func TestSendLongPropagatesTransportFailure(t *testing.T) {
	line := strings.Repeat("z", 1000)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 10), "\n")

	svc := &recordingService{failAt: 2}
	err := SendLong(context.Background(), svc, "12345", text)
	if err == nil {
		t.Fatal("expected delivery failure")
	}
	if len(svc.sent) != 1 {
		t.Errorf("expected delivery to stop after failure, got %d sends", len(svc.sent))
	}
}

func TestSendLongWithButtonsAttachesToLastChunk(t *testing.T) {
	line := strings.Repeat("w", 1000)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 10), "\n")
	buttons := []models.Button{{Label: "« Volver al Menú Principal", Data: models.ActionDataMainMenu}}

	svc := &recordingService{}
	if err := SendLongWithButtons(context.Background(), svc, "12345", text, buttons); err != nil {
		t.Fatalf("SendLongWithButtons failed: %v", err)
	}
	last := len(svc.sent) - 1
	for i := range svc.sent {
		if i == last {
			if len(svc.buttons[i]) != 1 {
				t.Errorf("expected buttons on final chunk")
			}
		} else if svc.buttons[i] != nil {
			t.Errorf("unexpected buttons on chunk %d", i)
		}
	}
}
