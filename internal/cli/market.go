package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/RamanBirulia/stock-notebook/internal/price"
)

type chartCmd struct {
	app    *App
	period string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "show price history with your purchases marked" }
func (c *chartCmd) Usage() string {
	periods := make([]string, 0, len(price.Periods()))
	for _, p := range price.Periods() {
		periods = append(periods, string(p))
	}
	return fmt.Sprintf("chart [-period <%s>] <symbol>\n", strings.Join(periods, "|"))
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", string(price.DefaultPeriod), "Chart period")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if f.NArg() != 1 {
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	p, err := price.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	cd, err := a.Client.Chart(ctx, f.Arg(0), p)
	if err != nil {
		return a.fail(err)
	}
	a.printMarkdown(chartMarkdown(a.t, cd, a.Currency))
	return subcommands.ExitSuccess
}

type searchCmd struct {
	app   *App
	limit int
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "find ticker symbols by symbol or company name" }
func (*searchCmd) Usage() string    { return "search [-n <limit>] <query>\n" }

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 10, "Maximum number of results")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	query := strings.TrimSpace(strings.Join(f.Args(), " "))
	if query == "" {
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	ss, err := a.Client.SearchSymbols(ctx, query, c.limit)
	if err != nil {
		return a.fail(err)
	}
	a.printMarkdown(searchMarkdown(a.t, query, ss))
	return subcommands.ExitSuccess
}

type watchCmd struct {
	app      *App
	interval time.Duration
	count    int
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "poll the current price of a symbol" }
func (*watchCmd) Usage() string {
	return `watch [-every <duration>] [-n <count>] <symbol>

  Prints the price now and then on every tick until interrupted or until
  -n updates were shown.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.interval, "every", time.Minute, "Polling interval")
	f.IntVar(&c.count, "n", 0, "Stop after this many updates; 0 runs until interrupted")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if f.NArg() != 1 {
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, err := a.Client.PollPrice(ctx, f.Arg(0), c.interval)
	if err != nil {
		return a.fail(err)
	}
	shown := 0
	for u := range updates {
		at := u.At.Local().Format(time.TimeOnly)
		if u.Err != nil {
			a.println(a.t("watch.failed", "time", at, "symbol", strings.ToUpper(f.Arg(0)), "message", u.Err.Error()))
			if _, err := a.Session.Token(); err != nil {
				return a.fail(err)
			}
		} else {
			a.println(a.t("watch.tick", "time", at, "symbol", u.Quote.Symbol, "price", formatMoney(u.Quote.Price, a.Currency)))
		}
		shown++
		if c.count > 0 && shown >= c.count {
			cancel()
		}
	}
	return subcommands.ExitSuccess
}
