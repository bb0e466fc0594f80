package client

import (
	"context"
	"time"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// PriceUpdate is one poll result. Err is set when that fetch failed.
type PriceUpdate struct {
	Quote models.PriceQuote
	Err   error
	At    time.Time
}

// PollPrice fetches symbol immediately and then every interval until ctx
// is done. The channel is closed when polling stops. A failed fetch is
// delivered as an update and polling continues unless the session ended.
func (c *Client) PollPrice(ctx context.Context, symbol string, interval time.Duration) (<-chan PriceUpdate, error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Minute
	}
	out := make(chan PriceUpdate)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			q, err := c.freshPrice(ctx, sym)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- PriceUpdate{Quote: q, Err: err, At: time.Now()}:
			case <-ctx.Done():
				return
			}
			if _, tokErr := c.session.Token(); tokErr != nil {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
