package model

import "time"

// Exchange is one recorded user turn in a conversation.
// Immutable once recorded.
type Exchange struct {
	Author    string
	Content   string
	Timestamp time.Time
}

// TranscriptEntry is one prior chat message supplied as grounding context.
type TranscriptEntry struct {
	Author    string
	Content   string
	Bot       bool
	Timestamp time.Time
}

// ChatMessage is a single role-tagged message sent to the language model.
type ChatMessage struct {
	Role    string `json:"role"` // "system" or "user"
	Content string `json:"content"`
}

// Sampling holds model invocation parameters.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}
