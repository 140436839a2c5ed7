package tool

import "github.com/flemzord/finbridge/internal/source"

func symbolArg() Arg {
	return Arg{Name: "symbol", Description: "Ticker symbol, e.g. AAPL or 601899.SH", Required: true}
}

// Entries returns every exposed tool in presentation order. get_quote is a
// transport-level alias of get_stock_quote: both bind the same canonical
// operation.
func Entries() []Entry {
	return []Entry{
		{
			Name:        "get_stock_quote",
			Description: "Get the current quote for a symbol",
			Op:          source.OpQuote,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_quote",
			Description: "Alias of get_stock_quote",
			Op:          source.OpQuote,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_stock_candles",
			Description: "Get OHLCV candles for a symbol",
			Op:          source.OpCandles,
			Args: []Arg{
				symbolArg(),
				{Name: "resolution", Description: "Bar resolution", Default: "D"},
				{Name: "from", Description: "Range start, YYYY-MM-DD"},
				{Name: "to", Description: "Range end, YYYY-MM-DD"},
			},
		},
		{
			Name:        "get_daily_prices",
			Description: "Get daily prices keyed by date",
			Op:          source.OpDailyPrices,
			Args: []Arg{
				symbolArg(),
				{Name: "outputsize", Description: "Result size", Default: "compact", Enum: []string{"compact", "full"}},
			},
		},
		{
			Name:        "get_news",
			Description: "Get recent news for a symbol",
			Op:          source.OpNews,
			Args: []Arg{
				symbolArg(),
				{Name: "category", Description: "News category filter"},
				{Name: "minId", Description: "Only items newer than this id"},
			},
		},
		{
			Name:        "get_company_overview",
			Description: "Get the company profile for a symbol",
			Op:          source.OpCompanyOverview,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_company_basic_financials",
			Description: "Get basic financial lines for a company",
			Op:          source.OpBasicFinancials,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_company_metrics",
			Description: "Get company metrics",
			Op:          source.OpCompanyMetrics,
			Args: []Arg{
				symbolArg(),
				{Name: "metricType", Description: "Metric group to fetch"},
			},
		},
		{
			Name:        "get_income_statement",
			Description: "Get the income statement for a company",
			Op:          source.OpIncomeStatement,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_balance_sheet",
			Description: "Get the balance sheet for a company",
			Op:          source.OpBalanceSheet,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_cash_flow",
			Description: "Get the cash flow statement for a company",
			Op:          source.OpCashFlow,
			Args:        []Arg{symbolArg()},
		},
		{
			Name:        "get_technical_indicator",
			Description: "Get a technical indicator series for a symbol",
			Op:          source.OpIndicator,
			Args: []Arg{
				symbolArg(),
				{Name: "indicator", Description: "Indicator name, e.g. RSI, SMA, EMA, MACD", Required: true},
				{Name: "interval", Description: "Sampling interval", Default: "daily"},
				{Name: "time_period", Description: "Lookback period", Default: "14"},
			},
		},
	}
}
