package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/giygas/pharmacy-validator/config"
	"github.com/giygas/pharmacy-validator/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// cfg is loaded once by the root command before any subcommand runs
	cfg *config.Config

	loggingService *logging.LoggingService
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pharmacy-validator",
		Short: "Validate a pharmacy client list against the SAPC register",
		Long: `pharmacy-validator looks up every pharmacy of a client list on the
South African Pharmacy Council register, picks the closest registered name and
writes an annotated copy of the list with the match, its score and its status.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress on the console")
	rootCmd.PersistentFlags().String("column", "", "name of the column holding pharmacy names")
	rootCmd.PersistentFlags().Duration("delay", 0, "pause between two register lookups")
	rootCmd.PersistentFlags().Duration("timeout", 0, "timeout of a single register lookup")
	rootCmd.PersistentFlags().String("register-url", "", "register search page URL")

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the command line and always releases the log file, whether the
// command succeeded or not
func run(ctx context.Context, args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	defer func() {
		if err := loggingService.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	return rootCmd.ExecuteContext(ctx)
}

// initConfig reads .env and the environment, applies the flags given on the
// command line and sets up logging
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}

	applyFlags(cmd, loaded)

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg = loaded

	verbose, _ := cmd.Flags().GetBool("verbose")
	opts := logging.OptionsFromConfig(cfg)
	opts.Verbose = verbose
	loggingService = logging.InitLogger(opts)

	slog.Debug("Configuration loaded",
		"env", cfg.Env.String(),
		"register_url", cfg.RegisterURL,
		"name_column", cfg.NameColumn,
		"fetch_delay", cfg.FetchDelay.String(),
		"file_logging", loggingService.FileLogging())

	return nil
}

// applyFlags overrides config values with the flags that were set explicitly
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("column") {
		c.NameColumn, _ = flags.GetString("column")
	}
	if flags.Changed("delay") {
		c.FetchDelay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("timeout") {
		c.RequestTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("register-url") {
		c.RegisterURL, _ = flags.GetString("register-url")
	}
	if f := flags.Lookup("port"); f != nil && f.Changed {
		c.Port = f.Value.String()
	}
	if f := flags.Lookup("address"); f != nil && f.Changed {
		c.Address = f.Value.String()
	}
}
