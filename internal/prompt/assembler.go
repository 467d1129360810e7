package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"TickerSage/internal/model"
)

// Refusal is the exact sentence returned when the transcript does not
// contain the requested information.
const Refusal = "I don't have that information in the chat history."

// Offline is returned when the language model cannot be reached.
const Offline = "My AI brain is offline right now. Please try again in a few minutes."

// Scope is the reply used when asked about anything outside the transcript.
const Scope = "I only respond based on what has been said in this chat."

// botReplyMarkers identify the bot's own prior fallback/refusal messages.
// Transcript entries containing any of these are excluded before assembly so
// the model does not anchor on its own refusals.
var botReplyMarkers = []string{
	"I only respond based on",
	"I don't have that information",
	"My AI brain is offline",
}

// tickerPattern matches candidate ticker symbols in free text. Bare uppercase
// words trigger matches, so common acronyms are false positives; the stoplist
// below trims the worst of them. Known precision/recall tradeoff.
var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

var tickerStoplist = map[string]bool{
	"OK": true, "NO": true, "SO": true, "TV": true,
	"USA": true, "CEO": true, "CFO": true, "IPO": true, "ETF": true,
	"AI": true, "FAQ": true, "ASAP": true, "LOL": true, "THE": true,
	"AND": true, "FOR": true, "WHAT": true, "WHO": true, "WHY": true,
	"HOW": true, "EPS": true, "USD": true,
}

// FilterBotReplies drops transcript entries that are the bot's own prior
// fallback or refusal messages.
func FilterBotReplies(entries []model.TranscriptEntry) []model.TranscriptEntry {
	out := make([]model.TranscriptEntry, 0, len(entries))
	for _, e := range entries {
		if isBotReply(e.Content) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func isBotReply(content string) bool {
	for _, marker := range botReplyMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// CandidateTickers extracts uppercase 2-5 letter tokens from an utterance
// that plausibly name ticker symbols.
func CandidateTickers(utterance string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tickerPattern.FindAllString(utterance, -1) {
		if tickerStoplist[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// ShouldRefuse is the groundedness pre-check: it reports whether the
// utterance names candidate tickers, none of which appear anywhere in the
// transcript, with no just-in-time data supplied. In that case the model
// cannot possibly answer from the transcript and the caller should
// short-circuit with Refusal instead of invoking it.
func ShouldRefuse(entries []model.TranscriptEntry, utterance, dataBlock string) bool {
	if dataBlock != "" {
		return false
	}
	candidates := CandidateTickers(utterance)
	if len(candidates) == 0 {
		return false
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Content)
		b.WriteString("\n")
	}
	text := b.String()
	for _, sym := range candidates {
		if strings.Contains(text, sym) {
			return false
		}
	}
	return true
}

// Flatten renders transcript entries as one plain-text block, one line per
// entry, tagged with timestamp, author, and bot flag.
func Flatten(entries []model.TranscriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		tag := ""
		if e.Bot {
			tag = " (bot)"
		}
		fmt.Fprintf(&b, "[%s] %s%s: %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Author, tag, e.Content)
	}
	return b.String()
}

// Build assembles the model-ready message sequence: a single system entry
// carrying the date, the non-negotiable rules, the flattened transcript, and
// an optional current-data block, followed by the new utterance. Callers must
// run FilterBotReplies and ShouldRefuse first.
func Build(now time.Time, entries []model.TranscriptEntry, dataBlock, utterance string) []model.ChatMessage {
	var sys strings.Builder
	fmt.Fprintf(&sys, "Today's date is %s.\n\n", now.Format("Monday, January 2, 2006"))
	sys.WriteString("You are a chat assistant with strict, non-negotiable rules:\n")
	sys.WriteString("1. Answer ONLY from the chat history below. It is your sole source of truth.\n")
	sys.WriteString("2. If the answer is not in the chat history, reply with exactly: \"" + Refusal + "\"\n")
	sys.WriteString("3. Never use outside knowledge, even when you are certain of the answer.\n")
	sys.WriteString("4. Never invent prices, dates, or facts that do not appear below.\n")
	sys.WriteString("5. Keep replies short and conversational.\n")

	sys.WriteString("\n--- CHAT HISTORY ---\n")
	if len(entries) == 0 {
		sys.WriteString("(empty)\n")
	} else {
		sys.WriteString(Flatten(entries))
	}
	sys.WriteString("--- END CHAT HISTORY ---\n")

	if dataBlock != "" {
		sys.WriteString("\n--- CURRENT DATA ---\n")
		sys.WriteString(dataBlock)
		sys.WriteString("--- END CURRENT DATA ---\n")
	}

	return []model.ChatMessage{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: utterance},
	}
}

// FromExchanges adapts the per-user store history into transcript entries.
func FromExchanges(history []model.Exchange) []model.TranscriptEntry {
	out := make([]model.TranscriptEntry, 0, len(history))
	for _, ex := range history {
		out = append(out, model.TranscriptEntry{
			Author:    ex.Author,
			Content:   ex.Content,
			Timestamp: ex.Timestamp,
		})
	}
	return out
}
