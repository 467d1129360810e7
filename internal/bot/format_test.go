package bot

import (
	"strings"
	"testing"
	"time"

	"TickerSage/internal/model"
)

func TestHumanCount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{950, "950"},
		{12345, "12.3K"},
		{12345678, "12.35M"},
		{2400000000, "2.40B"},
		{2400000000000, "2.40T"},
	}
	for _, tt := range tests {
		if got := humanCount(tt.in); got != tt.want {
			t.Errorf("humanCount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatInsider_LimitsAndSigns(t *testing.T) {
	act := &model.InsiderActivity{
		Symbol: "AAPL",
		Transactions: []model.InsiderTransaction{
			{Name: "T. Cook", Change: -50000, Price: 148.5, Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
			{Name: "L. Maestri", Change: 10000, Price: 150.1, Date: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)},
			{Name: "K. Adams", Change: 2000, Price: 151.0, Date: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)},
		},
	}

	out := FormatInsider(act, 2)

	if want := "T. Cook sold 50.0K shares"; !strings.Contains(out, want) {
		t.Errorf("expected %q in output:\n%s", want, out)
	}
	if want := "L. Maestri bought 10.0K shares"; !strings.Contains(out, want) {
		t.Errorf("expected %q in output:\n%s", want, out)
	}
	if strings.Contains(out, "K. Adams") {
		t.Errorf("limit 2 must truncate the third transaction:\n%s", out)
	}
}
