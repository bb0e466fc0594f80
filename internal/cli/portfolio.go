package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

type buyCmd struct {
	app        *App
	symbol     string
	quantity   string
	price      string
	commission string
	date       string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase" }
func (*buyCmd) Usage() string {
	return `buy -s <symbol> -q <quantity> -price <price per share> [-c <commission>] [-d <YYYY-MM-DD>]

  Records a stock purchase. The date defaults to today and may not be in
  the future.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Ticker symbol (required)")
	f.StringVar(&c.quantity, "q", "", "Number of shares (required)")
	f.StringVar(&c.price, "price", "", "Price per share (required)")
	f.StringVar(&c.commission, "c", "0", "Commission paid")
	f.StringVar(&c.date, "d", "", "Purchase date, YYYY-MM-DD; defaults to today")
}

func (c *buyCmd) input() (validate.PurchaseInput, error) {
	in := validate.PurchaseInput{Symbol: c.symbol}
	var err error
	if in.Quantity, err = parseAmount("quantity", c.quantity); err != nil {
		return in, err
	}
	if in.PricePerShare, err = parseAmount("pricePerShare", c.price); err != nil {
		return in, err
	}
	if in.Commission, err = parseAmount("commission", c.commission); err != nil {
		return in, err
	}
	in.PurchaseDate = models.Today()
	if c.date != "" {
		if in.PurchaseDate, err = models.ParseDate(c.date); err != nil {
			return in, validate.FieldError("purchaseDate", "must be a YYYY-MM-DD date")
		}
	}
	return in, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, validate.FieldError(field, "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, validate.FieldError(field, "must be a number")
	}
	return d, nil
}

func (c *buyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	in, err := c.input()
	if err != nil {
		return a.fail(err)
	}
	p, err := a.Client.CreatePurchase(ctx, in)
	if err != nil {
		return a.fail(err)
	}
	a.println(a.t("addPurchase.success",
		"quantity", formatQuantity(p.Quantity),
		"symbol", p.Symbol,
		"price", formatMoney(p.PricePerShare, a.Currency)))
	return subcommands.ExitSuccess
}

type purchasesCmd struct {
	app    *App
	symbol string
	from   string
	to     string
	recent int
	remove string
}

func (*purchasesCmd) Name() string     { return "purchases" }
func (*purchasesCmd) Synopsis() string { return "list or delete recorded purchases" }
func (*purchasesCmd) Usage() string {
	return `purchases [-s <symbol>] [-from <date> -to <date>] [-recent <n>] [-delete <id>]

  Lists purchases, newest first. Filters are exclusive: -s, then the date
  range, then -recent. -delete removes one purchase by id.
`
}

func (c *purchasesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Only purchases of this symbol")
	f.StringVar(&c.from, "from", "", "Start of the date range, YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "End of the date range, YYYY-MM-DD")
	f.IntVar(&c.recent, "recent", 0, "Only the n most recent purchases")
	f.StringVar(&c.remove, "delete", "", "Delete the purchase with this id")
}

func (c *purchasesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	if c.remove != "" {
		id, err := uuid.Parse(c.remove)
		if err != nil {
			return a.fail(validate.FieldError("id", "must be a purchase id"))
		}
		if err := a.Client.DeletePurchase(ctx, id); err != nil {
			return a.fail(err)
		}
		return subcommands.ExitSuccess
	}

	var (
		ps  []models.Purchase
		err error
	)
	switch {
	case c.symbol != "":
		ps, err = a.Client.PurchasesBySymbol(ctx, c.symbol)
	case c.from != "" || c.to != "":
		var from, to models.Date
		if from, err = optionalDate("startDate", c.from); err != nil {
			return a.fail(err)
		}
		if to, err = optionalDate("endDate", c.to); err != nil {
			return a.fail(err)
		}
		ps, err = a.Client.PurchasesBetween(ctx, from, to)
	case c.recent > 0:
		ps, err = a.Client.RecentPurchases(ctx, c.recent)
	default:
		ps, err = a.Client.Purchases(ctx)
	}
	if err != nil {
		return a.fail(err)
	}
	a.printMarkdown(purchasesMarkdown(a.t, ps, a.Currency))
	return subcommands.ExitSuccess
}

func optionalDate(field, s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, validate.FieldError(field, "must be a YYYY-MM-DD date")
	}
	return d, nil
}

type dashboardCmd struct{ app *App }

func (*dashboardCmd) Name() string             { return "dashboard" }
func (*dashboardCmd) Synopsis() string         { return "show portfolio value and profit/loss" }
func (*dashboardCmd) Usage() string            { return "dashboard\n" }
func (*dashboardCmd) SetFlags(f *flag.FlagSet) {}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	s, err := a.Client.Dashboard(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printMarkdown(dashboardMarkdown(a.t, s, a.Currency))
	return subcommands.ExitSuccess
}

type stockCmd struct{ app *App }

func (*stockCmd) Name() string             { return "stock" }
func (*stockCmd) Synopsis() string         { return "show your position and purchases of one symbol" }
func (*stockCmd) Usage() string            { return "stock <symbol>\n" }
func (*stockCmd) SetFlags(f *flag.FlagSet) {}

func (c *stockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if f.NArg() != 1 {
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	d, err := a.Client.Stock(ctx, f.Arg(0))
	if err != nil {
		return a.fail(err)
	}
	a.printMarkdown(stockMarkdown(a.t, d, a.Currency))
	return subcommands.ExitSuccess
}
