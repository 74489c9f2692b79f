package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings represents the application settings
type Settings struct {
	Tickers           []string `yaml:"tickers"`
	DataFile          string   `yaml:"data_file"`
	OutputHTML        string   `yaml:"output_html"`
	OutputPNG         string   `yaml:"output_png,omitempty"` // Empty disables PNG output
	OpenBrowser       bool     `yaml:"open_browser"`
	APIBaseURL        string   `yaml:"api_base_url"`
	CookieURL         string   `yaml:"cookie_url"`
	UserAgent         string   `yaml:"user_agent"`
	RequestTimeoutMs  int      `yaml:"request_timeout_ms"`
	MaxRetries        int      `yaml:"max_retries"`
	Workers           int      `yaml:"workers"`
	RequestsPerSecond int      `yaml:"requests_per_second"` // 0 = unlimited
	ChartRange        string   `yaml:"chart_range"`
	EnableDebug       bool     `yaml:"enable_debug"`
	EnableLogging     bool     `yaml:"enable_logging"`
	LogDirectory      string   `yaml:"log_directory"`
	ShowProgress      bool     `yaml:"show_progress"`
	Style             Style    `yaml:"style"`
}

// Style holds the cosmetic knobs that distinguish heatmap variants
type Style struct {
	Title            string  `yaml:"title"`
	ShowDate         bool    `yaml:"show_date"`
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	Margin           int     `yaml:"margin"`
	Background       string  `yaml:"background"`
	GradientClamp    float64 `yaml:"gradient_clamp"`
	GradientExponent float64 `yaml:"gradient_exponent"`
	FontScale        float64 `yaml:"font_scale"`
	FontMin          float64 `yaml:"font_min"`
	FontMax          float64 `yaml:"font_max"`
	FontFamily       string  `yaml:"font_family"`
	ShadowText       bool    `yaml:"shadow_text"`
	LegendPosition   string  `yaml:"legend_position"`
	Watermark        string  `yaml:"watermark,omitempty"`
}

// SettingsManager manages loading and saving settings
type SettingsManager struct {
	configFile  string
	configFound bool // Set by LoadSettings when the file existed
	mu          sync.RWMutex
}

// GetConfigDir returns the user config directory path
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, ConfigDirName), nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// LoadEnvFile loads a .env file from the working directory if one exists
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// NewSettingsManager creates a new settings manager
// If configFile is empty, uses default user config directory
func NewSettingsManager(configFile string) *SettingsManager {
	if configFile == "" {
		if path, err := GetConfigPath(); err == nil {
			configFile = path
		} else {
			// Fallback to current directory
			configFile = ConfigFileName
		}
	}

	return &SettingsManager{
		configFile: configFile,
	}
}

// LoadSettings loads settings from file and applies environment overrides.
// A missing file yields the defaults.
func (sm *SettingsManager) LoadSettings() (*Settings, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	settings := GetDefaultSettings()

	data, err := os.ReadFile(sm.configFile)
	sm.configFound = err == nil
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Unmarshal over the defaults so omitted keys keep their default values
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(settings); err != nil {
		return nil, err
	}

	settings.Tickers = NormalizeTickers(settings.Tickers)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", sm.configFile, err)
	}

	return settings, nil
}

func applyEnvOverrides(s *Settings) error {
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		s.APIBaseURL = v
	}
	if v := os.Getenv(EnvDataFile); v != "" {
		s.DataFile = v
	}
	if v := os.Getenv(EnvOutputHTML); v != "" {
		s.OutputHTML = v
	}
	if v := os.Getenv(EnvOutputPNG); v != "" {
		s.OutputPNG = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		s.Workers = n
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run
func (s *Settings) Validate() error {
	if len(s.Tickers) == 0 {
		return errors.New("tickers must not be empty")
	}
	if s.Workers < 1 || s.Workers > MaxFetchWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxFetchWorkers, s.Workers)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", s.MaxRetries)
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %d", s.RequestsPerSecond)
	}
	if s.DataFile == "" {
		return errors.New("data_file must be set")
	}
	if s.Style.Width <= 2*s.Style.Margin || s.Style.Height <= 2*s.Style.Margin {
		return fmt.Errorf("chart %dx%d is too small for margin %d", s.Style.Width, s.Style.Height, s.Style.Margin)
	}
	if s.Style.GradientClamp <= 0 {
		return fmt.Errorf("gradient_clamp must be positive, got %v", s.Style.GradientClamp)
	}
	if s.Style.GradientExponent <= 0 {
		return fmt.Errorf("gradient_exponent must be positive, got %v", s.Style.GradientExponent)
	}
	if s.Style.FontScale <= 0 {
		return fmt.Errorf("font_scale must be positive, got %v", s.Style.FontScale)
	}
	if s.Style.FontMin <= 0 || s.Style.FontMin > s.Style.FontMax {
		return fmt.Errorf("font_min must be positive and at most font_max (%v), got %v", s.Style.FontMax, s.Style.FontMin)
	}
	switch s.Style.LegendPosition {
	case LegendBottomRight, LegendBottomLeft, LegendTopRight, LegendNone:
	default:
		return fmt.Errorf("unknown legend_position %q", s.Style.LegendPosition)
	}
	return nil
}

// SaveSettings saves settings to file
func (sm *SettingsManager) SaveSettings(settings *Settings) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	dir := filepath.Dir(sm.configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(sm.configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (sm *SettingsManager) GetConfigPath() string {
	return sm.configFile
}

// ConfigFound reports whether the last LoadSettings read a file rather than
// falling back to defaults
func (sm *SettingsManager) ConfigFound() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.configFound
}

// GetDefaultSettings returns default settings
func GetDefaultSettings() *Settings {
	tickers := make([]string, len(DefaultTickers))
	copy(tickers, DefaultTickers)

	return &Settings{
		Tickers:           tickers,
		DataFile:          DefaultDataFile,
		OutputHTML:        DefaultOutputHTML,
		OpenBrowser:       true,
		APIBaseURL:        APIBaseURL,
		CookieURL:         CookieURL,
		UserAgent:         DefaultUserAgent,
		RequestTimeoutMs:  DefaultRequestTimeoutMs,
		MaxRetries:        HTTPMaxRetries,
		Workers:           DefaultFetchWorkers,
		RequestsPerSecond: 0,
		ChartRange:        DefaultChartRange,
		EnableDebug:       false,
		EnableLogging:     true,
		LogDirectory:      DefaultLogDirectory,
		ShowProgress:      true,
		Style: Style{
			Title:            "NASDAQ-100 Daily Performance Heatmap",
			ShowDate:         true,
			Width:            DefaultChartWidth,
			Height:           DefaultChartHeight,
			Margin:           DefaultChartMargin,
			Background:       "#121212",
			GradientClamp:    DefaultGradientClamp,
			GradientExponent: DefaultGradientExponent,
			FontScale:        DefaultFontScale,
			FontMin:          DefaultFontMin,
			FontMax:          DefaultFontMax,
			FontFamily:       "Arial Black",
			ShadowText:       true,
			LegendPosition:   LegendBottomRight,
		},
	}
}
