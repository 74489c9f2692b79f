package api

import (
	"fmt"
	"net/url"
)

// Endpoints maps endpoint names to URL templates.
// Template arguments are (baseURL, escaped symbol, ...endpoint specific).
var Endpoints = map[string]string{
	// Daily bars; range is a Yahoo period such as "2d" or "5d"
	"chart": "%s/v8/finance/chart/%s?range=%s&interval=1d&includePrePost=false",

	// Quote snapshot with market cap and company names
	"quote": "%s/v7/finance/quote?symbols=%s",

	// Session crumb required by the quote endpoint
	"crumb": "%s/v1/test/getcrumb",
}

// EndpointURL builds the URL for endpoint, escaping the ticker symbol
func EndpointURL(endpoint, baseURL, ticker string, extra ...string) (string, error) {
	urlTemplate, ok := Endpoints[endpoint]
	if !ok {
		return "", fmt.Errorf("unknown endpoint: %s", endpoint)
	}

	switch endpoint {
	case "chart":
		chartRange := "5d"
		if len(extra) > 0 && extra[0] != "" {
			chartRange = extra[0]
		}
		return fmt.Sprintf(urlTemplate, baseURL, url.PathEscape(ticker), url.QueryEscape(chartRange)), nil
	case "quote":
		u := fmt.Sprintf(urlTemplate, baseURL, url.QueryEscape(ticker))
		if len(extra) > 0 && extra[0] != "" {
			u += "&crumb=" + url.QueryEscape(extra[0])
		}
		return u, nil
	default:
		return fmt.Sprintf(urlTemplate, baseURL), nil
	}
}
