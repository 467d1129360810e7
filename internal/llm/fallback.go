package llm

import "strings"

// Fallback applies a small fixed-pattern responder for when the model call
// fails with a non-connection error. Returns "" when no pattern matches,
// which callers must treat as "send nothing".
func Fallback(utterance string) string {
	text := strings.ToLower(utterance)
	switch {
	case text == "hi" || containsAny(text, "hello", "hi ", "hey", "good morning", "good evening"):
		return "Hello! Ask me about a ticker or anything from this chat."
	case containsAny(text, "thank", "thx", "appreciate"):
		return "You're welcome!"
	case containsAny(text, "how are you", "how's it going", "how r u"):
		return "All systems nominal. What can I look up for you?"
	default:
		return ""
	}
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
