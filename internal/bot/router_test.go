package bot

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"TickerSage/internal/conversation"
	"TickerSage/internal/marketdata"
	"TickerSage/internal/model"
	"TickerSage/internal/prompt"
	"TickerSage/internal/watchlist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	quotes     map[string]*model.QuoteSnapshot
	quoteCalls []string
}

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (*model.QuoteSnapshot, error) {
	f.quoteCalls = append(f.quoteCalls, symbol)
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, marketdata.ErrNotFound
	}
	return q, nil
}

func (f *fakeProvider) EarningsCalendar(ctx context.Context, symbol string) (*model.EarningsCalendar, error) {
	return nil, marketdata.ErrNotFound
}

func (f *fakeProvider) EarningsHistory(ctx context.Context, symbol string) ([]model.EarningsReport, error) {
	return nil, marketdata.ErrNotFound
}

func (f *fakeProvider) InsiderActivity(ctx context.Context, symbol string) (*model.InsiderActivity, error) {
	return nil, marketdata.ErrNotFound
}

func (f *fakeProvider) Name() string { return "fake" }

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  []model.ChatMessage
}

func (f *fakeCompleter) Chat(ctx context.Context, msgs []model.ChatMessage, s model.Sampling) (string, error) {
	f.calls++
	f.last = msgs
	return f.reply, f.err
}

type fakeGateway struct {
	entries []model.TranscriptEntry
	typed   int
}

func (f *fakeGateway) History(channelID string, limit int) ([]model.TranscriptEntry, error) {
	return f.entries, nil
}

func (f *fakeGateway) Typing(channelID string) error {
	f.typed++
	return nil
}

type fakeEventSync struct {
	ensured []string
	removed []string
}

func (f *fakeEventSync) EnsureEvent(ctx context.Context, symbol string) error {
	f.ensured = append(f.ensured, symbol)
	return nil
}

func (f *fakeEventSync) RemoveIfUnwatched(symbol string) error {
	f.removed = append(f.removed, symbol)
	return nil
}

type fixture struct {
	router   *Router
	provider *fakeProvider
	llm      *fakeCompleter
	gateway  *fakeGateway
	events   *fakeEventSync
	store    *watchlist.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := watchlist.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := &fakeProvider{quotes: map[string]*model.QuoteSnapshot{}}
	completer := &fakeCompleter{reply: "a grounded answer"}
	gateway := &fakeGateway{}
	evs := &fakeEventSync{}
	convs := conversation.NewStore(10, 15*time.Minute)

	router := NewRouter(store, provider, convs, completer, evs, gateway, model.Sampling{Temperature: 0, MaxTokens: 200})
	return &fixture{router: router, provider: provider, llm: completer, gateway: gateway, events: evs, store: store}
}

func inbound(content string, mentioned bool) Inbound {
	return Inbound{
		UserID:    "u1",
		Author:    "alice",
		ChannelID: "ch1",
		GuildID:   "g1",
		Content:   content,
		Mentioned: mentioned,
	}
}

func TestHandle_QuoteCommand(t *testing.T) {
	f := newFixture(t)
	f.provider.quotes["AAPL"] = &model.QuoteSnapshot{
		Symbol:           "AAPL",
		Name:             "Apple Inc.",
		Price:            150.00,
		ChangePercent:    1.23,
		DayHigh:          151,
		DayLow:           149,
		FiftyTwoWeekHigh: 180,
		FiftyTwoWeekLow:  120,
		Volume:           12345678,
	}

	reply := f.router.Handle(context.Background(), inbound("/AAPL", false))

	assert.Contains(t, reply, "Price: $150.00")
	assert.Contains(t, reply, "+1.23%")
	assert.Contains(t, reply, "Day high: 151.00")
	assert.Contains(t, reply, "Day low: 149.00")
	assert.Contains(t, reply, "52-week high: 180.00")
	assert.Contains(t, reply, "52-week low: 120.00")
}

func TestHandle_QuoteNotFound(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Handle(context.Background(), inbound("/ZZZZ", false))
	assert.Contains(t, reply, "Couldn't find ticker")
}

func TestHandle_MalformedTicker(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Handle(context.Background(), inbound("/toolongsymbol", false))
	assert.Contains(t, reply, "didn't recognize")
	assert.Empty(t, f.provider.quoteCalls, "no provider call for malformed input")
}

func TestHandle_Help(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Handle(context.Background(), inbound("/help", false))
	assert.Contains(t, reply, "/watch")
	assert.Contains(t, reply, "/earn")
	assert.Contains(t, reply, "/insider")
}

func TestHandle_UnaddressedFreeTextIgnored(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Handle(context.Background(), inbound("just chatting about stocks", false))
	assert.Empty(t, reply)
	assert.Zero(t, f.llm.calls)
}

func TestWatchAdd_UnknownTickerNotInserted(t *testing.T) {
	f := newFixture(t)

	reply := f.router.Handle(context.Background(), inbound("/watch add ZZZZZ", false))

	assert.Contains(t, reply, "Couldn't find ticker")
	symbols, err := f.store.List("u1")
	require.NoError(t, err)
	assert.Empty(t, symbols, "nothing may be inserted for an unresolvable ticker")
}

func TestWatchAdd_ValidatesBeforeProviderCall(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Handle(context.Background(), inbound("/watch add not-a-sym", false))
	assert.Contains(t, reply, "doesn't look like a ticker")
	assert.Empty(t, f.provider.quoteCalls)
}

func TestWatchAdd_CreatesEventAndReportsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.provider.quotes["AAPL"] = &model.QuoteSnapshot{Symbol: "AAPL", Price: 150}

	reply := f.router.Handle(context.Background(), inbound("/watch add AAPL", false))
	assert.Contains(t, reply, "Added **AAPL**")
	assert.Equal(t, []string{"AAPL"}, f.events.ensured)

	reply = f.router.Handle(context.Background(), inbound("/watch add AAPL", false))
	assert.Contains(t, reply, "already in your watchlist")
	assert.Len(t, f.events.ensured, 1, "duplicate add must not re-ensure the event")
}

func TestWatchRemove_TriggersEventCleanup(t *testing.T) {
	f := newFixture(t)
	f.provider.quotes["AAPL"] = &model.QuoteSnapshot{Symbol: "AAPL", Price: 150}
	f.router.Handle(context.Background(), inbound("/watch add AAPL", false))

	reply := f.router.Handle(context.Background(), inbound("/watch remove AAPL", false))

	assert.Contains(t, reply, "Removed **AAPL**")
	assert.Equal(t, []string{"AAPL"}, f.events.removed)
}

func TestWatchClear(t *testing.T) {
	f := newFixture(t)
	f.provider.quotes["AAPL"] = &model.QuoteSnapshot{Symbol: "AAPL", Price: 150}
	f.provider.quotes["MSFT"] = &model.QuoteSnapshot{Symbol: "MSFT", Price: 400}
	f.router.Handle(context.Background(), inbound("/watch add AAPL", false))
	f.router.Handle(context.Background(), inbound("/watch add MSFT", false))

	reply := f.router.Handle(context.Background(), inbound("/watch clear", false))

	assert.Contains(t, reply, "Cleared 2")
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, f.events.removed)
}

func TestInsider_LimitParsing(t *testing.T) {
	f := newFixture(t)
	// Provider returns not-found for everything; we only check validation.
	tests := []struct {
		input string
		want  string
	}{
		{"/insider AAPL", "No insider data"},
		{"/insider 10 AAPL", "No insider data"},
		{"/insider bogus", "doesn't look like a ticker"},
		{"/insider", "Usage"},
	}
	for _, tt := range tests {
		reply := f.router.Handle(context.Background(), inbound(tt.input, false))
		assert.Contains(t, reply, tt.want, "input %q", tt.input)
	}
}

func TestConverse_OfflineOnConnectionError(t *testing.T) {
	f := newFixture(t)
	f.llm.err = &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}

	reply := f.router.Handle(context.Background(), inbound("hello", true))

	assert.Equal(t, prompt.Offline, reply)
	assert.Equal(t, 1, f.llm.calls)
}

func TestConverse_FallbackOnOtherErrors(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("model exploded")

	reply := f.router.Handle(context.Background(), inbound("hello there", true))
	assert.Contains(t, reply, "Hello!")

	reply = f.router.Handle(context.Background(), inbound("summarize the discussion", true))
	assert.Empty(t, reply, "no fallback match means silence")
}

func TestConverse_ShortCircuitsUngroundedTicker(t *testing.T) {
	f := newFixture(t)
	f.gateway.entries = []model.TranscriptEntry{
		{Author: "bob", Content: "we were talking about MSFT", Timestamp: time.Now()},
	}

	reply := f.router.Handle(context.Background(), inbound("what's the price of TSLA?", true))

	assert.Equal(t, prompt.Refusal, reply)
	assert.Zero(t, f.llm.calls, "pre-check must not invoke the model")
}

func TestConverse_DataBlockUnblocksPrecheck(t *testing.T) {
	f := newFixture(t)
	f.provider.quotes["TSLA"] = &model.QuoteSnapshot{Symbol: "TSLA", Price: 250, ChangePercent: 1.0}

	reply := f.router.Handle(context.Background(), inbound("what's the price of TSLA?", true))

	assert.Equal(t, "a grounded answer", reply)
	require.Equal(t, 1, f.llm.calls)
	assert.Contains(t, f.last(t)[0].Content, "TSLA: $250.00")
}

func (f *fixture) last(t *testing.T) []model.ChatMessage {
	t.Helper()
	require.NotEmpty(t, f.llm.last)
	return f.llm.last
}

func TestConverse_RecordsExchange(t *testing.T) {
	f := newFixture(t)
	f.router.Handle(context.Background(), inbound("hello", true))

	history := f.router.Conversations.History("u1")
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "alice", history[0].Author)
}

func TestConverse_FiltersBotRefusalsFromTranscript(t *testing.T) {
	f := newFixture(t)
	f.gateway.entries = []model.TranscriptEntry{
		{Author: "sage", Content: prompt.Refusal, Bot: true, Timestamp: time.Now()},
		{Author: "bob", Content: "AAPL hit 150 today", Timestamp: time.Now()},
	}

	f.router.Handle(context.Background(), inbound("what did AAPL hit?", true))

	require.Equal(t, 1, f.llm.calls)
	sys := f.last(t)[0].Content
	assert.Contains(t, sys, "AAPL hit 150 today")
	assert.NotContains(t, sys, "sage")
}

func TestKeepalive_SendsTypingAndStops(t *testing.T) {
	gw := &fakeGateway{}
	k := &Keepalive{gw: gw, interval: 10 * time.Millisecond}

	stop := k.Start("ch1")
	time.Sleep(35 * time.Millisecond)
	stop()
	stop() // stop must be safe to call twice
	time.Sleep(5 * time.Millisecond)

	count := gw.typed
	assert.GreaterOrEqual(t, count, 2, "typing must be re-sent while active")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, gw.typed, "no typing after stop")
}
