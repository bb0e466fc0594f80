package price

import "github.com/RamanBirulia/stock-notebook/internal/models"

var catalog = []models.StockSymbol{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "1980-12-12", Status: "Active"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "2004-08-19", Status: "Active"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "1986-03-13", Status: "Active"},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "1997-05-15", Status: "Active"},
	{Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "2010-06-29", Status: "Active"},
	{Symbol: "META", Name: "Meta Platforms Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "2012-05-18", Status: "Active"},
	{Symbol: "NFLX", Name: "Netflix Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "2002-05-23", Status: "Active"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "1999-01-22", Status: "Active"},
	{Symbol: "AMD", Name: "Advanced Micro Devices Inc.", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "1972-09-27", Status: "Active"},
	{Symbol: "INTC", Name: "Intel Corporation", Exchange: "NASDAQ", AssetType: "Equity", IPODate: "1971-10-13", Status: "Active"},
}

// Catalog returns a copy of the builtin symbol list seeded into storage.
func Catalog() []models.StockSymbol {
	out := make([]models.StockSymbol, len(catalog))
	copy(out, catalog)
	return out
}
