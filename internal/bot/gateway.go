package bot

import "TickerSage/internal/model"

// Gateway is the chat-platform surface the router needs: prior channel
// messages for grounding and the typing indicator.
type Gateway interface {
	History(channelID string, limit int) ([]model.TranscriptEntry, error)
	Typing(channelID string) error
}
