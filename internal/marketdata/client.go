package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"TickerSage/internal/model"
)

// HTTPProvider implements Provider against a REST market-data API.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPProvider creates a provider with optional proxy support.
func NewHTTPProvider(baseURL, apiKey, proxyURL string) *HTTPProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *HTTPProvider) Name() string { return "rest" }

func (p *HTTPProvider) get(ctx context.Context, path, symbol string, out any) error {
	endpoint := fmt.Sprintf("%s%s?symbol=%s", p.BaseURL, path, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fetch %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type quoteResponse struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	High52w       float64 `json:"high_52w"`
	Low52w        float64 `json:"low_52w"`
	Volume        int64   `json:"volume"`
	MarketCap     float64 `json:"market_cap"`
}

// Quote fetches a fresh snapshot for one ticker. A zero price is treated the
// same as a 404: the provider returns empty records for unknown symbols.
func (p *HTTPProvider) Quote(ctx context.Context, symbol string) (*model.QuoteSnapshot, error) {
	var q quoteResponse
	if err := p.get(ctx, "/api/v1/quote", symbol, &q); err != nil {
		return nil, err
	}
	if q.Price == 0 {
		return nil, ErrNotFound
	}
	return &model.QuoteSnapshot{
		Symbol:           symbol,
		Name:             q.Name,
		Price:            q.Price,
		ChangePercent:    q.ChangePercent,
		DayHigh:          q.DayHigh,
		DayLow:           q.DayLow,
		FiftyTwoWeekHigh: q.High52w,
		FiftyTwoWeekLow:  q.Low52w,
		Volume:           q.Volume,
		MarketCap:        q.MarketCap,
	}, nil
}

type earningsResponse struct {
	Symbol      string  `json:"symbol"`
	NextDate    string  `json:"next_date"` // YYYY-MM-DD
	EPSLow      float64 `json:"eps_estimate_low"`
	EPSHigh     float64 `json:"eps_estimate_high"`
	RevenueLow  float64 `json:"revenue_estimate_low"`
	RevenueHigh float64 `json:"revenue_estimate_high"`
}

// EarningsCalendar fetches the next scheduled earnings report for a ticker.
func (p *HTTPProvider) EarningsCalendar(ctx context.Context, symbol string) (*model.EarningsCalendar, error) {
	var e earningsResponse
	if err := p.get(ctx, "/api/v1/earnings/calendar", symbol, &e); err != nil {
		return nil, err
	}
	if e.NextDate == "" {
		return nil, ErrNotFound
	}
	date, err := time.Parse("2006-01-02", e.NextDate)
	if err != nil {
		return nil, fmt.Errorf("parse earnings date %q: %w", e.NextDate, err)
	}
	return &model.EarningsCalendar{
		Symbol:          symbol,
		NextDate:        date,
		EPSEstimateLow:  e.EPSLow,
		EPSEstimateHigh: e.EPSHigh,
		RevenueLow:      e.RevenueLow,
		RevenueHigh:     e.RevenueHigh,
	}, nil
}

type earningsHistoryItem struct {
	Period      string  `json:"period"` // YYYY-MM-DD
	EPSActual   float64 `json:"eps_actual"`
	EPSEstimate float64 `json:"eps_estimate"`
	Surprise    float64 `json:"surprise_percent"`
}

// EarningsHistory fetches recent reported quarters for a ticker.
func (p *HTTPProvider) EarningsHistory(ctx context.Context, symbol string) ([]model.EarningsReport, error) {
	var items []earningsHistoryItem
	if err := p.get(ctx, "/api/v1/earnings/history", symbol, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	reports := make([]model.EarningsReport, 0, len(items))
	for _, it := range items {
		period, err := time.Parse("2006-01-02", it.Period)
		if err != nil {
			continue
		}
		reports = append(reports, model.EarningsReport{
			Period:      period,
			EPSActual:   it.EPSActual,
			EPSEstimate: it.EPSEstimate,
			Surprise:    it.Surprise,
		})
	}
	return reports, nil
}

type insiderResponse struct {
	Symbol       string `json:"symbol"`
	Transactions []struct {
		Name   string  `json:"name"`
		Shares int64   `json:"shares"`
		Change int64   `json:"change"`
		Price  float64 `json:"price"`
		Date   string  `json:"date"`
		Code   string  `json:"code"`
	} `json:"transactions"`
	Holders []struct {
		Name     string `json:"name"`
		Relation string `json:"relation"`
		Shares   int64  `json:"shares"`
	} `json:"holders"`
}

// InsiderActivity fetches insider transactions and major holders.
func (p *HTTPProvider) InsiderActivity(ctx context.Context, symbol string) (*model.InsiderActivity, error) {
	var raw insiderResponse
	if err := p.get(ctx, "/api/v1/insider", symbol, &raw); err != nil {
		return nil, err
	}
	if len(raw.Transactions) == 0 && len(raw.Holders) == 0 {
		return nil, ErrNotFound
	}
	act := &model.InsiderActivity{Symbol: symbol}
	for _, t := range raw.Transactions {
		date, _ := time.Parse("2006-01-02", t.Date)
		act.Transactions = append(act.Transactions, model.InsiderTransaction{
			Name:   t.Name,
			Shares: t.Shares,
			Change: t.Change,
			Price:  t.Price,
			Date:   date,
			Code:   t.Code,
		})
	}
	for _, h := range raw.Holders {
		act.Holders = append(act.Holders, model.InsiderHolder{
			Name:     h.Name,
			Relation: h.Relation,
			Shares:   h.Shares,
		})
	}
	return act, nil
}
