package transcription

import (
	"context"
	"strings"

	"call-review-go/internal/types"
)

// mockExchange is repeated to produce a call comfortably over the default gate.
const mockExchange = `Agent: Good afternoon, thanks for taking the time today. I wanted to walk you through the two bedroom flats in the east tower.
Customer: Sure, but I am worried about the price and the possession date.
Agent: That is fair. The price includes parking and the possession date is fixed in the agreement, so there is no risk of delay charges.
Customer: Okay, can you send me the floor plans?`

// MockClient returns a deterministic transcript without any network call.
type MockClient struct{}

func (MockClient) Transcribe(_ context.Context, _ types.AudioInput) (types.TranscriptionResult, error) {
	text := strings.TrimSpace(strings.Repeat(mockExchange+"\n", 8))
	return result(text, nil), nil
}
