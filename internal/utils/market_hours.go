package utils

import (
	"log"
	"time"
	_ "time/tzdata" // Embed IANA timezone database so America/New_York always resolves
)

// MARKET_TIMEZONE represents US Eastern Time (where NASDAQ operates)
var MARKET_TIMEZONE *time.Location

func init() {
	var err error
	MARKET_TIMEZONE, err = time.LoadLocation("America/New_York")
	if err != nil {
		log.Printf("WARNING: Failed to load America/New_York timezone: %v - falling back to UTC", err)
		MARKET_TIMEZONE = time.UTC
	}
}

// GetMarketTimezone returns the market timezone (Eastern Time)
func GetMarketTimezone() *time.Location {
	return MARKET_TIMEZONE
}

// NowMarketTime returns current time in market timezone (Eastern Time)
func NowMarketTime() time.Time {
	return time.Now().In(MARKET_TIMEZONE)
}

// MarketOpenCloseTimes returns market open and close times for a given date in Eastern Time
// Market hours: 9:30 AM - 4:00 PM ET, Monday-Friday
func MarketOpenCloseTimes(date time.Time) (time.Time, time.Time) {
	date = date.In(MARKET_TIMEZONE)
	marketOpen := time.Date(date.Year(), date.Month(), date.Day(), 9, 30, 0, 0, MARKET_TIMEZONE)
	marketClose := time.Date(date.Year(), date.Month(), date.Day(), 16, 0, 0, 0, MARKET_TIMEZONE)
	return marketOpen, marketClose
}

// IsMarketOpenAt reports whether regular trading hours cover t.
// Exchange holidays are not modelled.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(MARKET_TIMEZONE)
	if IsWeekend(t) {
		return false
	}
	marketOpen, marketClose := MarketOpenCloseTimes(t)
	return !t.Before(marketOpen) && !t.After(marketClose)
}

// IsWeekend checks if a date falls on a weekend (Saturday or Sunday)
func IsWeekend(date time.Time) bool {
	weekday := date.In(MARKET_TIMEZONE).Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// GetLastTradingDay returns the last trading day (Friday) if the date is a weekend,
// otherwise returns the date unchanged
func GetLastTradingDay(date time.Time) time.Time {
	date = date.In(MARKET_TIMEZONE)
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, -2)
	}
	return date
}

// GetMarketDateForDate converts any time to the session date whose close the
// daily data reflects.
// Weekends map to the previous Friday. Before 8:30 AM ET the previous
// session is still the latest one, so the previous trading day is returned.
func GetMarketDateForDate(date time.Time) time.Time {
	date = date.In(MARKET_TIMEZONE)

	if IsWeekend(date) {
		return GetLastTradingDay(date)
	}

	rolloverTime := time.Date(date.Year(), date.Month(), date.Day(), 8, 30, 0, 0, MARKET_TIMEZONE)
	if date.Before(rolloverTime) {
		return GetLastTradingDay(date.AddDate(0, 0, -1))
	}
	return date
}

// MarketDateLabel formats the market date for chart subtitles, e.g. "Fri, 14 Mar 2025"
func MarketDateLabel(t time.Time) string {
	return GetMarketDateForDate(t).Format("Mon, 02 Jan 2006")
}
