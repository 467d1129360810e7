package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TickerSage/internal/marketdata"
	"TickerSage/internal/watchlist"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxHorizon is how far ahead an earnings date may be for an event to be
// worth creating. Past dates and dates beyond the horizon are skipped.
const maxHorizon = 90 * 24 * time.Hour

// API is the guild scheduled-event surface the syncer needs.
type API interface {
	CreateEvent(guildID, name, description string, start, end time.Time) (string, error)
	DeleteEvent(guildID, eventID string) error
}

// Syncer keeps guild scheduled events aligned with the union of all
// watchlists: one event per watched symbol with an upcoming earnings date.
type Syncer struct {
	Watchlist *watchlist.Store
	Provider  marketdata.Provider
	Events    API
	GuildID   string

	limiter *rate.Limiter
	now     func() time.Time
}

// NewSyncer creates a syncer. Provider calls inside a sync batch are
// throttled to avoid rate-limiting by the market-data API.
func NewSyncer(wl *watchlist.Store, provider marketdata.Provider, api API, guildID string) *Syncer {
	return &Syncer{
		Watchlist: wl,
		Provider:  provider,
		Events:    api,
		GuildID:   guildID,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		now:       time.Now,
	}
}

// EventName is the display name of the earnings event for a symbol.
func EventName(symbol string) string {
	return fmt.Sprintf("%s Earnings Report", symbol)
}

// Sync creates missing events for watched symbols and deletes events whose
// symbol is no longer on any watchlist. One symbol's failure does not abort
// the batch.
func (s *Syncer) Sync(ctx context.Context) {
	symbols, err := s.Watchlist.AllSymbols()
	if err != nil {
		log.Errorf("earnings sync: list symbols: %v", err)
		return
	}

	watched := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		watched[sym] = true
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.EnsureEvent(ctx, sym); err != nil {
			log.Warnf("earnings sync: %s: %v", sym, err)
		}
	}

	// Drop events for symbols removed from every watchlist.
	mapped, err := s.Watchlist.Events(s.GuildID)
	if err != nil {
		log.Errorf("earnings sync: list event mappings: %v", err)
		return
	}
	for sym, eventID := range mapped {
		if watched[sym] {
			continue
		}
		if err := s.deleteEvent(sym, eventID); err != nil {
			log.Warnf("earnings sync: delete %s: %v", sym, err)
		}
	}
	log.Infof("earnings sync complete: %d watched symbol(s)", len(symbols))
}

// EnsureEvent creates the earnings event for a symbol if its next earnings
// date is known, upcoming, and within the horizon, and no event is recorded
// yet. Idempotent via the (guild, symbol) mapping.
func (s *Syncer) EnsureEvent(ctx context.Context, symbol string) error {
	if _, ok, err := s.Watchlist.EventID(s.GuildID, symbol); err != nil {
		return err
	} else if ok {
		return nil
	}

	cal, err := s.Provider.EarningsCalendar(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("earnings lookup: %w", err)
	}

	now := s.now()
	if !cal.NextDate.After(now) || cal.NextDate.After(now.Add(maxHorizon)) {
		log.Debugf("earnings sync: skip %s, date %s out of window", symbol, cal.NextDate.Format("2006-01-02"))
		return nil
	}

	desc := fmt.Sprintf("Estimated EPS %.2f-%.2f", cal.EPSEstimateLow, cal.EPSEstimateHigh)
	eventID, err := s.Events.CreateEvent(s.GuildID, EventName(symbol), desc, cal.NextDate, cal.NextDate.Add(time.Hour))
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	if err := s.Watchlist.PutEvent(s.GuildID, symbol, eventID, cal.NextDate); err != nil {
		return err
	}
	log.Infof("created earnings event for %s on %s", symbol, cal.NextDate.Format("2006-01-02"))
	return nil
}

// RemoveIfUnwatched deletes the symbol's event once no user watches it.
// Called after watchlist remove/clear.
func (s *Syncer) RemoveIfUnwatched(symbol string) error {
	n, err := s.Watchlist.HolderCount(symbol)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	eventID, ok, err := s.Watchlist.EventID(s.GuildID, symbol)
	if err != nil || !ok {
		return err
	}
	return s.deleteEvent(symbol, eventID)
}

func (s *Syncer) deleteEvent(symbol, eventID string) error {
	if err := s.Events.DeleteEvent(s.GuildID, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if err := s.Watchlist.DeleteEvent(s.GuildID, symbol); err != nil {
		return err
	}
	log.Infof("removed earnings event for %s", symbol)
	return nil
}
