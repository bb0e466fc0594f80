package price

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

var ErrInvalidPeriod = errors.New("invalid chart period")

// Period is a chart window such as 1M or 5Y.
type Period string

const (
	Period1D  Period = "1D"
	Period1W  Period = "1W"
	Period1M  Period = "1M"
	Period3M  Period = "3M"
	Period6M  Period = "6M"
	Period1Y  Period = "1Y"
	Period2Y  Period = "2Y"
	Period5Y  Period = "5Y"
	Period10Y Period = "10Y"
	PeriodMax Period = "MAX"

	DefaultPeriod = Period1M
)

type periodSpec struct {
	yahooRange    string
	yahooInterval string
	lookbackDays  int
	maxPoints     int
}

var periods = map[Period]periodSpec{
	Period1D:  {"1d", "5m", 1, 1},
	Period1W:  {"5d", "15m", 7, 7},
	Period1M:  {"1mo", "1d", 30, 30},
	Period3M:  {"3mo", "1d", 90, 90},
	Period6M:  {"6mo", "1d", 180, 180},
	Period1Y:  {"1y", "1d", 365, 365},
	Period2Y:  {"2y", "1wk", 730, 730},
	Period5Y:  {"5y", "1wk", 1825, 1825},
	Period10Y: {"10y", "1mo", 3650, 3650},
	PeriodMax: {"max", "1mo", 7300, 3650},
}

// Periods lists the supported periods from shortest to longest.
func Periods() []Period {
	return []Period{Period1D, Period1W, Period1M, Period3M, Period6M, Period1Y, Period2Y, Period5Y, Period10Y, PeriodMax}
}

// ParsePeriod accepts any case. An empty string is DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := periods[p]; !ok {
		return "", fmt.Errorf("%w %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

func (p Period) spec() periodSpec {
	if s, ok := periods[p]; ok {
		return s
	}
	return periods[DefaultPeriod]
}

// Window returns the inclusive date range the period covers, ending today.
func (p Period) Window(today models.Date) (from, to models.Date) {
	return today.AddDays(-p.spec().lookbackDays), today
}

func (p Period) MaxPoints() int { return p.spec().maxPoints }

// Downsample keeps every n-th point so that at most max points remain.
// The newest point is always kept.
func Downsample(points []models.PricePoint, max int) []models.PricePoint {
	if max <= 0 || len(points) <= max {
		return points
	}
	step := (len(points) + max - 1) / max
	out := make([]models.PricePoint, 0, max)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	last := len(points) - 1
	if last%step != 0 {
		if len(out) < max {
			out = append(out, points[last])
		} else {
			out[len(out)-1] = points[last]
		}
	}
	return out
}
