package price

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
		err  bool
	}{
		{"", Period1M, false},
		{"1y", Period1Y, false},
		{" max ", PeriodMax, false},
		{"10Y", Period10Y, false},
		{"2W", "", true},
		{"forever", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if tt.err {
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Errorf("ParsePeriod(%q) err = %v, want ErrInvalidPeriod", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestPeriodsAreAllKnown(t *testing.T) {
	for _, p := range Periods() {
		if _, ok := periods[p]; !ok {
			t.Fatalf("period %s has no spec", p)
		}
	}
	if len(Periods()) != len(periods) {
		t.Fatalf("Periods() lists %d, table has %d", len(Periods()), len(periods))
	}
}

func TestWindow(t *testing.T) {
	today := models.NewDate(2024, 3, 31)
	from, to := Period1M.Window(today)
	if !to.Equal(today) || from.String() != "2024-03-01" {
		t.Fatalf("Window = %s..%s", from, to)
	}
}

func series(n int) []models.PricePoint {
	start := models.NewDate(2020, 1, 1)
	out := make([]models.PricePoint, n)
	for i := range out {
		out[i] = models.PricePoint{Date: start.AddDays(i), Price: decimal.NewFromInt(int64(i))}
	}
	return out
}

func TestDownsample(t *testing.T) {
	tests := []struct {
		n, max, want int
	}{
		{10, 0, 10},
		{10, 10, 10},
		{10, 20, 10},
		{10, 5, 5},
		{11, 5, 5},
		{32, 30, 17},
		{3650, 365, 365},
		{7300, 3650, 3650},
		{731, 365, 245},
	}
	for _, tt := range tests {
		got := Downsample(series(tt.n), tt.max)
		if len(got) != tt.want {
			t.Errorf("Downsample(%d, %d) len = %d, want %d", tt.n, tt.max, len(got), tt.want)
		}
		if tt.max > 0 && len(got) > tt.max {
			t.Errorf("Downsample(%d, %d) exceeded max", tt.n, tt.max)
		}
		if len(got) > 0 && !got[0].Price.Equal(decimal.Zero) {
			t.Errorf("Downsample(%d, %d) dropped the first point", tt.n, tt.max)
		}
		if len(got) > 0 && !got[len(got)-1].Price.Equal(decimal.NewFromInt(int64(tt.n-1))) {
			t.Errorf("Downsample(%d, %d) dropped the newest point", tt.n, tt.max)
		}
	}
}
