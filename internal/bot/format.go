package bot

import (
	"fmt"
	"strings"

	"TickerSage/internal/model"
)

const helpText = `**TickerSage commands**
` + "`/SYMBOL`" + ` — quote for a ticker, e.g. /AAPL
` + "`/watch add|remove|list|clear [SYMBOL]`" + ` — manage your watchlist
` + "`/earn estimate|history SYMBOL`" + ` — earnings estimates or history
` + "`/insider [limit] SYMBOL`" + ` — recent insider activity (limit 1-50, default 5)
` + "`/help`" + ` — this message
Mention me to chat about what's been discussed in this channel.`

// FormatQuote renders a quote snapshot as a reply message.
func FormatQuote(q *model.QuoteSnapshot) string {
	var b strings.Builder
	name := q.Name
	if name == "" {
		name = q.Symbol
	}
	fmt.Fprintf(&b, "**%s** — %s\n", q.Symbol, name)
	fmt.Fprintf(&b, "Price: $%.2f (%+.2f%%)\n", q.Price, q.ChangePercent)
	fmt.Fprintf(&b, "Day high: %.2f | Day low: %.2f\n", q.DayHigh, q.DayLow)
	fmt.Fprintf(&b, "52-week high: %.2f | 52-week low: %.2f\n", q.FiftyTwoWeekHigh, q.FiftyTwoWeekLow)
	fmt.Fprintf(&b, "Volume: %s\n", humanCount(float64(q.Volume)))
	if q.MarketCap > 0 {
		fmt.Fprintf(&b, "Market cap: $%s\n", humanCount(q.MarketCap))
	}
	return b.String()
}

// FormatQuoteLine is the compact one-line form used in watchlist views and
// the just-in-time data block.
func FormatQuoteLine(q *model.QuoteSnapshot) string {
	return fmt.Sprintf("%s: $%.2f (%+.2f%%)", q.Symbol, q.Price, q.ChangePercent)
}

// FormatWatchlist renders the user's symbols with live quotes where
// available.
func FormatWatchlist(symbols []string, quotes map[string]*model.QuoteSnapshot) string {
	if len(symbols) == 0 {
		return "Your watchlist is empty. Add a ticker with `/watch add SYMBOL`."
	}
	var b strings.Builder
	b.WriteString("**Your watchlist**\n")
	for _, sym := range symbols {
		if q, ok := quotes[sym]; ok {
			fmt.Fprintf(&b, "• %s\n", FormatQuoteLine(q))
		} else {
			fmt.Fprintf(&b, "• %s: quote unavailable\n", sym)
		}
	}
	return b.String()
}

// FormatEarningsEstimate renders the next earnings report details.
func FormatEarningsEstimate(cal *model.EarningsCalendar) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s earnings**\n", cal.Symbol)
	fmt.Fprintf(&b, "Next report: %s\n", cal.NextDate.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "EPS estimate: %.2f – %.2f\n", cal.EPSEstimateLow, cal.EPSEstimateHigh)
	if cal.RevenueHigh > 0 {
		fmt.Fprintf(&b, "Revenue estimate: $%s – $%s\n", humanCount(cal.RevenueLow), humanCount(cal.RevenueHigh))
	}
	return b.String()
}

// FormatEarningsHistory renders recent reported quarters.
func FormatEarningsHistory(symbol string, reports []model.EarningsReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s earnings history**\n", symbol)
	for _, r := range reports {
		fmt.Fprintf(&b, "• %s: EPS %.2f (est %.2f, %+.1f%%)\n",
			r.Period.Format("2006-01-02"), r.EPSActual, r.EPSEstimate, r.Surprise)
	}
	return b.String()
}

// FormatInsider renders insider transactions (up to limit) and top holders.
func FormatInsider(act *model.InsiderActivity, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s insider activity**\n", act.Symbol)

	txs := act.Transactions
	if len(txs) > limit {
		txs = txs[:limit]
	}
	if len(txs) == 0 {
		b.WriteString("No recent transactions.\n")
	}
	for _, t := range txs {
		verb := "bought"
		change := t.Change
		if change < 0 {
			verb = "sold"
			change = -change
		}
		fmt.Fprintf(&b, "• %s %s %s shares at $%.2f on %s\n",
			t.Name, verb, humanCount(float64(change)), t.Price, t.Date.Format("2006-01-02"))
	}

	if len(act.Holders) > 0 {
		b.WriteString("\n**Top holders**\n")
		holders := act.Holders
		if len(holders) > 5 {
			holders = holders[:5]
		}
		for _, h := range holders {
			fmt.Fprintf(&b, "• %s (%s): %s shares\n", h.Name, h.Relation, humanCount(float64(h.Shares)))
		}
	}
	return b.String()
}

// humanCount renders large counts as 1.2K / 3.4M / 5.6B / 7.8T.
func humanCount(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
