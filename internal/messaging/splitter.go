package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// MaxMessageLength is the largest message body the transport accepts in a
// single send.
const MaxMessageLength = 4096

// SplitMessage splits text into chunks that each fit MaxMessageLength.
// Text that already fits is returned as a single chunk unchanged. Longer
// text is split on line boundaries only, packing lines greedily; chunks
// are trimmed and whitespace-only chunks are dropped.
func SplitMessage(text string) []string {
	if len(text) <= MaxMessageLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > MaxMessageLength {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

// SendLong delivers text through svc, splitting it when it exceeds the
// transport limit. Chunks are sent in order; the first transport failure
// aborts the remainder so the caller sees the delivery failure instead of
// a silently truncated message.
func SendLong(ctx context.Context, svc Service, to string, text string) error {
	for i, chunk := range SplitMessage(text) {
		if err := svc.SendMessage(ctx, to, chunk); err != nil {
			return fmt.Errorf("failed to send chunk %d: %w", i+1, err)
		}
	}
	return nil
}

// SendLongWithButtons delivers text like SendLong but attaches the button
// set to the final chunk, so the buttons land under the end of the message.
func SendLongWithButtons(ctx context.Context, svc Service, to string, text string, buttons []models.Button) error {
	chunks := SplitMessage(text)
	for i, chunk := range chunks {
		var err error
		if i == len(chunks)-1 {
			err = svc.SendMessageWithButtons(ctx, to, chunk, buttons)
		} else {
			err = svc.SendMessage(ctx, to, chunk)
		}
		if err != nil {
			return fmt.Errorf("failed to send chunk %d: %w", i+1, err)
		}
	}
	return nil
}
