package config

import "time"

// Worker Pool Configuration
const (
	// DefaultFetchWorkers is the number of tickers fetched in parallel.
	// Downloads are I/O bound, so this stays well above the CPU count.
	DefaultFetchWorkers = 8
	MaxFetchWorkers     = 32
)

// HTTP Connection Pool Configuration
const (
	HTTPPoolConnections     = 64 // Number of idle connections to keep
	HTTPPoolMaxSize         = 32 // Max idle connections per host
	HTTPIdleConnTimeout     = 90 * time.Second
	HTTPMaxRetries          = 0 // No retries - fail fast, skip the ticker
	DefaultRequestTimeoutMs = 15000
	MaxResponseBytes        = 10 * 1024 * 1024
	ErrorBodyPreviewBytes   = 200
)

// RetryDelays is the wait before each retry attempt when max_retries > 0.
// Attempts past the end of the slice reuse the last delay.
var RetryDelays = []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}

// Rate Limit Handling
const (
	DefaultRateLimitCooldown = 60 * time.Second // Used when a 429 carries no Retry-After
	MaxRateLimitCooldown     = 5 * time.Minute
)

// API Configuration
const (
	APIBaseURL       = "https://query1.finance.yahoo.com"
	CookieURL        = "https://fc.yahoo.com"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	// Five sessions cover a holiday plus a weekend and still leave two closes.
	DefaultChartRange = "5d"
)

// Output Defaults
const (
	DefaultDataFile      = "nasdaq100_data.csv"
	DefaultOutputHTML    = "app/index.html"
	DefaultLogDirectory  = "./logs"
	PercentChangeDecimal = 2
)

// Chart Layout Configuration
const (
	LayoutWidth  = 100.0 // Treemap layout space (matches the 100x100 normalisation)
	LayoutHeight = 100.0

	DefaultChartWidth  = 1400
	DefaultChartHeight = 900
	DefaultChartMargin = 50

	DefaultGradientClamp    = 3.0
	DefaultGradientExponent = 0.8
	DefaultFontScale        = 0.3
	DefaultFontMin          = 9.0
	DefaultFontMax          = 20.0

	LegendBoxWidth  = 0.04 // Paper coordinates (fraction of plot width)
	LegendBoxHeight = 0.04
	LegendFontSize  = 12
	ShadowOffset    = 0.1 // Layout units
	TitleFontSize   = 26
	WatermarkSize   = 20
)

// Legend positions
const (
	LegendBottomRight = "bottom-right"
	LegendBottomLeft  = "bottom-left"
	LegendTopRight    = "top-right"
	LegendNone        = "none"
)

// Config Directory and Environment Variables
const (
	// ConfigDirName is the name of the config directory in user's config directory
	ConfigDirName = "nasdaq-heatmap"
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.yaml"

	EnvAPIBaseURL = "HEATMAP_API_BASE_URL"
	EnvDataFile   = "HEATMAP_DATA_FILE"
	EnvOutputHTML = "HEATMAP_OUTPUT_HTML"
	EnvOutputPNG  = "HEATMAP_OUTPUT_PNG"
	EnvWorkers    = "HEATMAP_WORKERS"
)
