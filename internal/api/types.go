package api

// Yahoo Finance JSON response structs

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"meta"`
			Timestamps []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *providerError `json:"error"`
	} `json:"chart"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string   `json:"symbol"`
			LongName                   string   `json:"longName"`
			ShortName                  string   `json:"shortName"`
			MarketCap                  *float64 `json:"marketCap"`
			RegularMarketChangePercent float64  `json:"regularMarketChangePercent"`
			Currency                   string   `json:"currency"`
		} `json:"result"`
		Error *providerError `json:"error"`
	} `json:"quoteResponse"`
}

type providerError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Chart is the daily close history for one symbol, oldest first
type Chart struct {
	Symbol     string
	Name       string
	Timestamps []int64 // Unix seconds, aligned with Closes when the provider sends them
	Closes     []float64
}

// Quote is the quote snapshot fields the heatmap needs
type Quote struct {
	Symbol        string
	LongName      string
	ShortName     string
	MarketCap     float64 // 0 when the provider omits it
	ChangePercent float64 // Provider's regular-market change, unrounded
	Currency      string
}
