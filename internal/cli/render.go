package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// translator is the label lookup the report builders need.
type translator func(key string, kv ...string) string

const maxChartRows = 12

func dashboardMarkdown(t translator, s models.PortfolioSummary, cur string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t("dashboard.title"))
	if len(s.Positions) == 0 {
		fmt.Fprintf(&b, "## %s\n\n%s\n", t("dashboard.empty.title"), t("dashboard.empty.message"))
		return b.String()
	}

	fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", t("dashboard.stats.totalSpent"), t("dashboard.stats.currentValue"), t("dashboard.stats.profitLoss"), t("dashboard.stats.percentage"))
	fmt.Fprintln(&b, "|---:|---:|---:|---:|")
	fmt.Fprintf(&b, "| %s | %s | %s | %s |\n\n",
		formatMoney(s.TotalSpent, cur), formatMoney(s.TotalValue, cur),
		signedMoney(s.ProfitLoss, cur), formatPercent(s.ProfitLossPercentage))

	fmt.Fprintf(&b, "## %s (%s)\n\n", t("dashboard.portfolio.title"), t("dashboard.portfolio.stocks", "count", strconv.Itoa(s.PositionCount)))
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
		t("dashboard.table.symbol"), t("dashboard.table.quantity"), t("dashboard.table.totalSpent"),
		t("dashboard.table.currentPrice"), t("dashboard.table.totalValue"), t("dashboard.table.profitLoss"))
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|")
	for _, p := range s.Positions {
		price, value, pl := "—", "—", "—"
		if p.PriceAvailable {
			price = formatMoney(p.CurrentPrice, cur)
			value = formatMoney(p.CurrentValue, cur)
			pl = signedMoney(p.ProfitLoss, cur) + " (" + formatPercent(p.ProfitLossPercentage) + ")"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			mdCell(p.Symbol), formatQuantity(p.TotalQuantity), formatMoney(p.TotalSpent, cur), price, value, pl)
	}
	if len(s.MissingPrices) > 0 {
		fmt.Fprintf(&b, "\n> %s\n", t("dashboard.missingPrices", "symbols", strings.Join(s.MissingPrices, ", ")))
	}
	if !s.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "\n*%s*\n", t("dashboard.lastUpdated", "time", s.LastUpdated.Local().Format(time.DateTime)))
	}
	return b.String()
}

func purchasesMarkdown(t translator, ps []models.Purchase, cur string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t("purchases.title"))
	if len(ps) == 0 {
		fmt.Fprintln(&b, t("purchases.empty"))
		return b.String()
	}
	writePurchaseTable(&b, t, ps, cur, true)
	return b.String()
}

func writePurchaseTable(b *strings.Builder, t translator, ps []models.Purchase, cur string, withSymbol bool) {
	cols := []string{
		t("stock.details.purchaseHistory.table.date"),
		t("stock.details.purchaseHistory.table.quantity"),
		t("stock.details.purchaseHistory.table.pricePerShare"),
		t("stock.details.purchaseHistory.table.commission"),
		t("stock.details.purchaseHistory.table.totalCost"),
	}
	align := "|:---|---:|---:|---:|---:|"
	if withSymbol {
		cols = append([]string{t("dashboard.table.symbol")}, cols...)
		align = "|:---" + align
	}
	fmt.Fprintf(b, "| %s |\n%s\n", strings.Join(cols, " | "), align)
	for _, p := range ps {
		row := []string{
			p.PurchaseDate.String(),
			formatQuantity(p.Quantity),
			formatMoney(p.PricePerShare, cur),
			formatMoney(p.Commission, cur),
			formatMoney(p.TotalCost(), cur),
		}
		if withSymbol {
			row = append([]string{mdCell(p.Symbol)}, row...)
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
	}
}

func stockMarkdown(t translator, d models.StockDetails, cur string) string {
	var b strings.Builder
	p := d.Position
	fmt.Fprintf(&b, "# %s\n\n", t("stock.details.title", "symbol", d.Symbol))

	current, value, pl := "—", "—", "—"
	if p.PriceAvailable {
		current = formatMoney(p.CurrentPrice, cur)
		value = formatMoney(p.CurrentValue, cur)
		pl = signedMoney(p.ProfitLoss, cur) + " (" + formatPercent(p.ProfitLossPercentage) + ")"
	}
	fmt.Fprintln(&b, "| | |\n|:---|---:|")
	fmt.Fprintf(&b, "| %s | %s |\n", t("stock.details.metrics.totalShares"), formatQuantity(p.TotalQuantity))
	fmt.Fprintf(&b, "| %s | %s |\n", t("stock.details.metrics.totalInvested"), formatMoney(p.TotalSpent, cur))
	fmt.Fprintf(&b, "| %s | %s |\n", t("stock.details.metrics.averagePrice"), formatMoney(p.AveragePrice, cur))
	fmt.Fprintf(&b, "| %s | %s |\n", t("stock.details.metrics.currentPrice"), current)
	fmt.Fprintf(&b, "| %s | %s |\n", t("stock.details.metrics.currentValue"), value)
	fmt.Fprintf(&b, "| %s | %s |\n\n", t("stock.details.metrics.profitLoss"), pl)

	fmt.Fprintf(&b, "## %s\n\n", t("stock.details.purchaseHistory.title"))
	if len(d.Purchases) == 0 {
		fmt.Fprintln(&b, t("stock.details.purchaseHistory.empty"))
		return b.String()
	}
	writePurchaseTable(&b, t, d.Purchases, cur, false)
	return b.String()
}

// chartMarkdown shows a sparkline of the series and a table of at most
// maxChartRows evenly spaced points. Days with purchases are marked.
func chartMarkdown(t translator, c models.ChartData, cur string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t("chart.title", "symbol", c.Symbol, "period", c.Period))
	if len(c.PriceData) == 0 {
		fmt.Fprintln(&b, t("chart.empty"))
		return b.String()
	}

	values := make([]decimal.Decimal, len(c.PriceData))
	for i, p := range c.PriceData {
		values[i] = p.Price
	}
	fmt.Fprintf(&b, "`%s`\n\n", sparkline(values))

	bought := make(map[string]bool, len(c.PurchasePoints))
	for _, p := range c.PurchasePoints {
		bought[p.Date.String()] = true
	}

	fmt.Fprintf(&b, "| %s | %s | %s |\n|:---|---:|:---:|\n", t("chart.date"), t("chart.price"), t("chart.purchases"))
	for _, i := range sampleIndexes(len(c.PriceData), maxChartRows) {
		p := c.PriceData[i]
		mark := ""
		if bought[p.Date.String()] {
			mark = "●"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", p.Date, formatMoney(p.Price, cur), mark)
	}
	return b.String()
}

// sampleIndexes picks up to limit indexes from [0, n), always keeping the
// last one.
func sampleIndexes(n, limit int) []int {
	if n <= limit {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, limit)
	for k := 0; k < limit; k++ {
		out = append(out, k*(n-1)/(limit-1))
	}
	return out
}

func searchMarkdown(t translator, query string, ss []models.SymbolSuggestion) string {
	var b strings.Builder
	if len(ss) == 0 {
		fmt.Fprintln(&b, t("search.empty", "query", query))
		return b.String()
	}
	fmt.Fprintf(&b, "# %s\n\n", t("search.title", "query", query))
	fmt.Fprintf(&b, "| %s | %s | %s |\n|:---|:---|:---|\n", t("search.table.symbol"), t("search.table.name"), t("search.table.exchange"))
	for _, s := range ss {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", mdCell(s.Symbol), mdCell(s.Name), mdCell(s.Exchange))
	}
	return b.String()
}
