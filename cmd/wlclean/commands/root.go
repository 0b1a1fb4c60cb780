// Package commands implements the CLI commands for wlclean.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wlclean/cmd/wlclean/browser"
	"github.com/jmylchreest/wlclean/internal/logger"
	"github.com/jmylchreest/wlclean/pkg/cleaner"
)

var rootCmd = &cobra.Command{
	Use:   "wlclean",
	Short: "Empty your YouTube Watch Later playlist",
	Long: `wlclean removes every video from the Watch Later playlist by driving
the playlist page in Chrome: it opens each video's menu and clicks
"Remove from Watch later", one video at a time, with randomised pacing,
retries and an automatic cool-down after repeated failures.

You need to be signed in. Either sign in in the browser window wlclean
opens, reuse an existing Chrome profile with --user-data-dir, or attach
to a running Chrome with --remote-url.

Examples:
  # Clean the playlist using your Chrome profile
  wlclean run --user-data-dir ~/.config/google-chrome

  # Attach to a Chrome started with --remote-debugging-port=9222
  wlclean run --remote-url http://127.0.0.1:9222

  # Interactive start/stop
  wlclean console --user-data-dir ~/.config/google-chrome`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := cleaner.DefaultConfig()
	bdefaults := browser.DefaultConfig()

	flags := rootCmd.PersistentFlags()

	// Global flags
	flags.String("config", "", "config file (default $HOME/.wlclean.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log as JSON")

	// Browser settings
	flags.String("url", cleaner.DefaultPlaylistURL, "playlist URL")
	flags.Bool("headless", false, "run Chrome without a window (requires a signed-in --user-data-dir)")
	flags.Bool("stealth", false, "hide common automation markers from the page")
	flags.String("user-data-dir", "", "Chrome profile directory to reuse")
	flags.String("remote-url", "", "DevTools URL of a running Chrome to attach to")
	flags.String("user-agent", "", "override the browser user agent")
	flags.Duration("navigate-timeout", bdefaults.NavigateTimeout, "page load timeout")
	flags.Duration("action-timeout", bdefaults.ActionTimeout, "timeout for a single page interaction")
	flags.String("item-selector", bdefaults.ItemSelector, "CSS selector for playlist item menu buttons")
	flags.String("menu-selector", bdefaults.MenuSelector, "CSS selector for the open menu's entry container")
	flags.Bool("debug-screenshots", false, "save a screenshot when the remove entry is missing")

	// Pacing settings
	flags.Duration("min-interval", defaults.MinInterval, "minimum delay between removals")
	flags.Duration("max-interval", defaults.MaxInterval, "maximum delay between removals")
	flags.Duration("menu-delay-min", defaults.MenuDelayMin, "minimum delay around menu interactions")
	flags.Duration("menu-delay-max", defaults.MenuDelayMax, "maximum delay around menu interactions")
	flags.Int("max-retries", defaults.MaxRetries, "retries per video before skipping it")
	flags.Duration("retry-delay", defaults.RetryDelay, "delay between retries")
	flags.Int("pause-after-errors", defaults.PauseAfterErrors, "consecutive skipped videos before pausing")
	flags.Duration("pause-duration", defaults.PauseDuration, "length of the cool-down pause")
	flags.Int("menu-entry-index", defaults.MenuEntryIndex, "zero-based position of the remove entry in the menu")
	flags.Int("load-more-margin", defaults.LoadMoreMargin, "scroll to load more when this many videos remain")
	flags.Duration("status-interval", defaults.StatusInterval, "status panel refresh interval")
	flags.Bool("clear-screen", defaults.ClearScreen, "clear the terminal before each status redraw")

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		_ = viper.BindPFlag(configKey(f.Name), f)
	})
}

// configKey maps a flag name to its config file key.
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".wlclean")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WLCLEAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// initLogger applies the logging flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
