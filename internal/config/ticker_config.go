package config

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultTickers is the NASDAQ-100 constituent list as of March 2025.
// Index membership changes quarterly; verify periodically and override
// through the tickers setting.
var DefaultTickers = []string{
	"AAPL", "ABNB", "ADBE", "ADI", "ADP", "ADSK", "AEP", "AMAT", "AMD", "AMGN",
	"AMZN", "ANSS", "APP", "ARM", "ASML", "AVGO", "AXON", "AZN", "BIIB", "BKNG",
	"BKR", "CCEP", "CDNS", "CDW", "CEG", "CHTR", "CMCSA", "COST", "CPRT", "CRWD",
	"CSCO", "CSGP", "CSX", "CTAS", "CTSH", "DASH", "DDOG", "DXCM", "EA", "EXC",
	"FANG", "FAST", "FTNT", "GEHC", "GFS", "GILD", "GOOG", "GOOGL", "HON", "IDXX",
	"INTC", "INTU", "ISRG", "KDP", "KHC", "KLAC", "LIN", "LRCX", "LULU", "MAR",
	"MCHP", "MDB", "MDLZ", "MELI", "META", "MNST", "MRVL", "MSFT", "MSTR", "MU",
	"NFLX", "NVDA", "NXPI", "ODFL", "ON", "ORLY", "PANW", "PAYX", "PCAR", "PDD",
	"PEP", "PLTR", "PYPL", "QCOM", "REGN", "ROP", "ROST", "SBUX", "SNPS", "TEAM",
	"TMUS", "TSLA", "TTD", "TTWO", "TXN", "VRSK", "VRTX", "WBD", "WDAY", "XEL", "ZS",
}

// NormalizeTickers upper-cases and trims symbols, drops blanks and removes
// duplicates while keeping the first occurrence order.
func NormalizeTickers(tickers []string) []string {
	cleaned := lo.FilterMap(tickers, func(t string, _ int) (string, bool) {
		t = strings.ToUpper(strings.TrimSpace(t))
		return t, t != ""
	})
	return lo.Uniq(cleaned)
}
