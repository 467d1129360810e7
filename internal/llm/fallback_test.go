package llm

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestFallback_Patterns(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"hello there", "Hello! Ask me about a ticker or anything from this chat."},
		{"hi", "Hello! Ask me about a ticker or anything from this chat."},
		{"Hey bot", "Hello! Ask me about a ticker or anything from this chat."},
		{"thanks a lot", "You're welcome!"},
		{"thank you!", "You're welcome!"},
		{"how are you today?", "All systems nominal. What can I look up for you?"},
		{"what is the price of AAPL", ""},
		{"tell me about the history of rome", ""},
	}
	for _, tt := range tests {
		if got := Fallback(tt.utterance); got != tt.want {
			t.Errorf("Fallback(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", syscall.ECONNREFUSED, true},
		{"wrapped refused", fmt.Errorf("chat request: %w", syscall.ECONNREFUSED), true},
		{"op error", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "ollama.local"}, true},
		{"plain error", errors.New("model returned garbage"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionError(tt.err); got != tt.want {
				t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
