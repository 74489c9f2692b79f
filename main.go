package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nasdaq-heatmap/internal/config"
	"nasdaq-heatmap/internal/utils"
)

var (
	// Global flags
	configFile string
	debug      bool
	noOpen     bool
	dataFile   string
	outputHTML string

	moversCount int
	forceInit   bool
)

// rootCmd fetches, renders and opens the heatmap
var rootCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "NASDAQ-100 daily performance heatmap",
	Long: `Fetches market cap and daily percent change for every NASDAQ-100
constituent, writes them to a CSV snapshot and renders a squarified treemap
heatmap as a standalone HTML page.

Run without a subcommand to fetch, render and open the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			return app.Run(ctx)
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch quotes and write the CSV snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			_, err := app.Fetch(ctx)
			return err
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the heatmap from the existing CSV snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			path, err := app.Render()
			if err != nil {
				return err
			}
			if app.settings.OpenBrowser {
				app.OpenOutput(path)
			}
			return nil
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the configured ticker list with the CSV snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			_, err := app.Check()
			return err
		})
	},
}

var moversCmd = &cobra.Command{
	Use:   "movers",
	Short: "Show the top gainers and losers from the CSV snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			return app.Movers(moversCount)
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sm := config.NewSettingsManager(configFile)
		path := sm.GetConfigPath()
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := sm.SaveSettings(config.GetDefaultSettings()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noOpen, "no-open", false, "Do not open the rendered heatmap")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data-file", "", "CSV snapshot path (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&outputHTML, "output", "o", "", "HTML output path (overrides config)")

	moversCmd.Flags().IntVarP(&moversCount, "count", "n", 10, "Number of gainers and losers to show")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(moversCmd)
	rootCmd.AddCommand(configCmd)
}

// loadSettings loads .env, the config file and flag overrides
func loadSettings(cmd *cobra.Command) (*config.Settings, *config.SettingsManager, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, nil, err
	}
	sm := config.NewSettingsManager(configFile)
	settings, err := sm.LoadSettings()
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		settings.EnableDebug = debug
	}
	if noOpen {
		settings.OpenBrowser = false
	}
	if dataFile != "" {
		settings.DataFile = dataFile
	}
	if outputHTML != "" {
		settings.OutputHTML = outputHTML
	}
	return settings, sm, nil
}

// withApp builds the App, wires logging and cancels on SIGINT/SIGTERM
func withApp(cmd *cobra.Command, fn func(context.Context, *App) error) error {
	settings, sm, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logDir := ""
	if settings.EnableLogging {
		logDir = settings.LogDirectory
	}
	if err := utils.InitLogger(logDir, settings.EnableDebug); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize file logger: %v. Continuing with console logging only.\n", err)
		_ = utils.InitLogger("", settings.EnableDebug)
	}
	if path := utils.GetLogger().Path(); path != "" {
		utils.Debugf("Log file: %s", path)
	}
	if !sm.ConfigFound() {
		utils.Logf("No config file at %s, using defaults", sm.GetConfigPath())
	}

	app := NewApp(sm, settings)
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx, app); err != nil {
		utils.Debugf("%s failed: %v", cmd.CommandPath(), err)
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
