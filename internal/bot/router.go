package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"TickerSage/internal/conversation"
	"TickerSage/internal/llm"
	"TickerSage/internal/marketdata"
	"TickerSage/internal/model"
	"TickerSage/internal/prompt"
	"TickerSage/internal/watchlist"

	log "github.com/sirupsen/logrus"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

const (
	defaultInsiderLimit = 5
	maxInsiderLimit     = 50
	historyFetchLimit   = 100
	maxDataBlockTickers = 3
)

// EventSync is the watchlist-driven slice of the scheduled-event syncer.
type EventSync interface {
	EnsureEvent(ctx context.Context, symbol string) error
	RemoveIfUnwatched(symbol string) error
}

// Inbound is one normalized chat message handed to the router. Content has
// any bot mention already stripped.
type Inbound struct {
	UserID    string
	Author    string
	ChannelID string
	GuildID   string
	Content   string
	Mentioned bool
}

// Router dispatches inbound messages to the watchlist, market-data, earnings,
// insider, and conversational paths. Every outcome is a formatted reply
// string; "" means send nothing.
type Router struct {
	Watchlist     *watchlist.Store
	Provider      marketdata.Provider
	Conversations *conversation.Store
	LLM           llm.Completer
	Events        EventSync
	Keepalive     *Keepalive
	Gateway       Gateway
	Sampling      model.Sampling

	now func() time.Time
}

// NewRouter wires the router's collaborators.
func NewRouter(wl *watchlist.Store, provider marketdata.Provider, convs *conversation.Store,
	completer llm.Completer, events EventSync, gw Gateway, sampling model.Sampling) *Router {
	return &Router{
		Watchlist:     wl,
		Provider:      provider,
		Conversations: convs,
		LLM:           completer,
		Events:        events,
		Keepalive:     NewKeepalive(gw),
		Gateway:       gw,
		Sampling:      sampling,
		now:           time.Now,
	}
}

// Handle processes one inbound message and returns the reply text.
func (r *Router) Handle(ctx context.Context, in Inbound) string {
	text := strings.TrimSpace(in.Content)
	if text == "" {
		return ""
	}

	if strings.HasPrefix(text, "/") {
		return r.dispatchCommand(ctx, in, strings.TrimPrefix(text, "/"))
	}
	if in.Mentioned {
		return r.converse(ctx, in, text)
	}
	return ""
}

func (r *Router) dispatchCommand(ctx context.Context, in Inbound, cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		return helpText
	case "watch":
		return r.handleWatch(ctx, in, fields[1:])
	case "earn":
		return r.handleEarn(ctx, fields[1:])
	case "insider":
		return r.handleInsider(ctx, fields[1:])
	default:
		symbol := strings.ToUpper(fields[0])
		if len(fields) == 1 && symbolPattern.MatchString(symbol) {
			return r.handleQuote(ctx, symbol)
		}
		return "I didn't recognize that. Tickers are 1-5 uppercase letters, e.g. `/AAPL`. Try `/help`."
	}
}

func (r *Router) handleQuote(ctx context.Context, symbol string) string {
	q, err := r.Provider.Quote(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			return fmt.Sprintf("Couldn't find ticker **%s**.", symbol)
		}
		log.Errorf("quote %s: %v", symbol, err)
		return "Market data is unavailable right now, try again shortly."
	}
	return FormatQuote(q)
}

func (r *Router) handleWatch(ctx context.Context, in Inbound, args []string) string {
	if len(args) == 0 {
		return "Usage: `/watch add|remove|list|clear [SYMBOL]`"
	}

	sub := strings.ToLower(args[0])
	switch sub {
	case "list":
		return r.watchList(ctx, in)
	case "clear":
		return r.watchClear(in.UserID)
	case "add", "remove":
		if len(args) < 2 {
			return fmt.Sprintf("Usage: `/watch %s SYMBOL`", sub)
		}
		symbol := strings.ToUpper(args[1])
		if !symbolPattern.MatchString(symbol) {
			return fmt.Sprintf("**%s** doesn't look like a ticker. Symbols are 1-5 uppercase letters.", args[1])
		}
		if sub == "add" {
			return r.watchAdd(ctx, in.UserID, symbol)
		}
		return r.watchRemove(in.UserID, symbol)
	default:
		return "Usage: `/watch add|remove|list|clear [SYMBOL]`"
	}
}

func (r *Router) watchAdd(ctx context.Context, userID, symbol string) string {
	// Verify the symbol resolves before touching the store.
	if _, err := r.Provider.Quote(ctx, symbol); err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			return fmt.Sprintf("Couldn't find ticker **%s**, not added.", symbol)
		}
		log.Errorf("watch add quote %s: %v", symbol, err)
		return "Market data is unavailable right now, try again shortly."
	}

	added, err := r.Watchlist.Add(userID, symbol)
	if err != nil {
		log.Errorf("watch add %s: %v", symbol, err)
		return "Something went wrong saving your watchlist."
	}
	if !added {
		return fmt.Sprintf("**%s** is already in your watchlist.", symbol)
	}

	if err := r.Events.EnsureEvent(ctx, symbol); err != nil {
		log.Warnf("ensure earnings event %s: %v", symbol, err)
	}
	return fmt.Sprintf("Added **%s** to your watchlist.", symbol)
}

func (r *Router) watchRemove(userID, symbol string) string {
	removed, err := r.Watchlist.Remove(userID, symbol)
	if err != nil {
		log.Errorf("watch remove %s: %v", symbol, err)
		return "Something went wrong updating your watchlist."
	}
	if !removed {
		return fmt.Sprintf("**%s** isn't in your watchlist.", symbol)
	}
	if err := r.Events.RemoveIfUnwatched(symbol); err != nil {
		log.Warnf("remove earnings event %s: %v", symbol, err)
	}
	return fmt.Sprintf("Removed **%s** from your watchlist.", symbol)
}

func (r *Router) watchList(ctx context.Context, in Inbound) string {
	symbols, err := r.Watchlist.List(in.UserID)
	if err != nil {
		log.Errorf("watch list: %v", err)
		return "Something went wrong reading your watchlist."
	}
	if len(symbols) == 0 {
		return FormatWatchlist(nil, nil)
	}

	// Live refresh across multiple symbols can take a while.
	stop := r.Keepalive.Start(in.ChannelID)
	defer stop()

	quotes := make(map[string]*model.QuoteSnapshot, len(symbols))
	for _, sym := range symbols {
		q, err := r.Provider.Quote(ctx, sym)
		if err != nil {
			log.Warnf("watch list quote %s: %v", sym, err)
			continue
		}
		quotes[sym] = q
	}
	return FormatWatchlist(symbols, quotes)
}

func (r *Router) watchClear(userID string) string {
	removed, err := r.Watchlist.Clear(userID)
	if err != nil {
		log.Errorf("watch clear: %v", err)
		return "Something went wrong clearing your watchlist."
	}
	if len(removed) == 0 {
		return "Your watchlist is already empty."
	}
	for _, sym := range removed {
		if err := r.Events.RemoveIfUnwatched(sym); err != nil {
			log.Warnf("remove earnings event %s: %v", sym, err)
		}
	}
	return fmt.Sprintf("Cleared %d symbol(s) from your watchlist.", len(removed))
}

func (r *Router) handleEarn(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: `/earn estimate|history SYMBOL`"
	}
	sub := strings.ToLower(args[0])
	symbol := strings.ToUpper(args[1])
	if !symbolPattern.MatchString(symbol) {
		return fmt.Sprintf("**%s** doesn't look like a ticker.", args[1])
	}

	switch sub {
	case "estimate":
		cal, err := r.Provider.EarningsCalendar(ctx, symbol)
		if err != nil {
			if errors.Is(err, marketdata.ErrNotFound) {
				return fmt.Sprintf("No upcoming earnings data for **%s**.", symbol)
			}
			log.Errorf("earnings calendar %s: %v", symbol, err)
			return "Market data is unavailable right now, try again shortly."
		}
		return FormatEarningsEstimate(cal)
	case "history":
		reports, err := r.Provider.EarningsHistory(ctx, symbol)
		if err != nil {
			if errors.Is(err, marketdata.ErrNotFound) {
				return fmt.Sprintf("No earnings history for **%s**.", symbol)
			}
			log.Errorf("earnings history %s: %v", symbol, err)
			return "Market data is unavailable right now, try again shortly."
		}
		return FormatEarningsHistory(symbol, reports)
	default:
		return "Usage: `/earn estimate|history SYMBOL`"
	}
}

func (r *Router) handleInsider(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: `/insider [limit] SYMBOL`"
	}

	limit := defaultInsiderLimit
	symArg := args[0]
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
			symArg = args[1]
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxInsiderLimit {
		limit = maxInsiderLimit
	}

	symbol := strings.ToUpper(symArg)
	if !symbolPattern.MatchString(symbol) {
		return fmt.Sprintf("**%s** doesn't look like a ticker.", symArg)
	}

	act, err := r.Provider.InsiderActivity(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			return fmt.Sprintf("No insider data for **%s**.", symbol)
		}
		log.Errorf("insider %s: %v", symbol, err)
		return "Market data is unavailable right now, try again shortly."
	}
	return FormatInsider(act, limit)
}

// converse runs the grounded conversational path: channel history becomes the
// transcript, tickers named in the utterance are resolved into a current-data
// block, and the assembled prompt goes to the model.
func (r *Router) converse(ctx context.Context, in Inbound, text string) string {
	stop := r.Keepalive.Start(in.ChannelID)
	defer stop()

	entries, err := r.Gateway.History(in.ChannelID, historyFetchLimit)
	if err != nil {
		log.Warnf("channel history: %v, falling back to per-user store", err)
		entries = prompt.FromExchanges(r.Conversations.History(in.UserID))
	}
	entries = prompt.FilterBotReplies(entries)

	dataBlock := r.currentData(ctx, text)

	r.Conversations.Record(in.UserID, model.Exchange{
		Author:    in.Author,
		Content:   text,
		Timestamp: r.now(),
	})

	if prompt.ShouldRefuse(entries, text, dataBlock) {
		return prompt.Refusal
	}

	msgs := prompt.Build(r.now(), entries, dataBlock, text)
	reply, err := r.LLM.Chat(ctx, msgs, r.Sampling)
	if err != nil {
		log.Errorf("model call: %v", err)
		if llm.IsConnectionError(err) {
			return prompt.Offline
		}
		return llm.Fallback(text)
	}
	return strings.TrimSpace(reply)
}

// currentData resolves tickers named in the utterance into a just-in-time
// data block so the model can ground price questions.
func (r *Router) currentData(ctx context.Context, text string) string {
	var b strings.Builder
	resolved := 0
	for _, sym := range prompt.CandidateTickers(text) {
		if resolved >= maxDataBlockTickers {
			break
		}
		q, err := r.Provider.Quote(ctx, sym)
		if err != nil {
			continue
		}
		b.WriteString(FormatQuoteLine(q))
		b.WriteString("\n")
		resolved++
	}
	return b.String()
}
