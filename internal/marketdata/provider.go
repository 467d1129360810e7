package marketdata

import (
	"context"
	"errors"

	"TickerSage/internal/model"
)

// ErrNotFound is returned when the provider has no data for a symbol.
var ErrNotFound = errors.New("marketdata: not found")

// Provider defines the interface for market-data lookups.
type Provider interface {
	Quote(ctx context.Context, symbol string) (*model.QuoteSnapshot, error)
	EarningsCalendar(ctx context.Context, symbol string) (*model.EarningsCalendar, error)
	EarningsHistory(ctx context.Context, symbol string) ([]model.EarningsReport, error)
	InsiderActivity(ctx context.Context, symbol string) (*model.InsiderActivity, error)
	Name() string
}
