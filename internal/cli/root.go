// Package cli contains the tablebook commands
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/tablebook-go/internal/bootstrap"
	"github.com/eshaffer321/tablebook-go/internal/config"
	"github.com/eshaffer321/tablebook-go/internal/logging"
	"github.com/eshaffer321/tablebook-go/internal/output"
	"github.com/eshaffer321/tablebook-go/pkg/booking"
)

var version = "dev"

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// app holds the state shared by every command of one invocation
type app struct {
	cfgFile    string
	envFile    string
	verbose    bool
	noColor    bool
	restaurant string

	cfg     *config.Config
	logger  *logging.Logger
	printer *output.Printer
	client  *booking.Client
	cleanup func()
}

// NewRootCommand builds the tablebook command tree.
// Call the returned func after Execute to flush reports and release storage.
func NewRootCommand() (*cobra.Command, func()) {
	a := &app{cleanup: func() {}}

	root := &cobra.Command{
		Use:   "tablebook",
		Short: "Book tables at the restaurant from the command line",
		Long: `tablebook searches availability and manages bookings against the consumer booking API.

Example usage:
  tablebook login --email ada@example.com --password secret
  tablebook slots --date 2025-06-10 --party 4
  tablebook book --date 2025-06-10 --time 19:00 --party 4 --first-name Ada ...
  tablebook show ABC1234
  tablebook cancel ABC1234 --reason 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .tablebook.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment variables from this file (default is .env when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVarP(&a.restaurant, "restaurant", "r", "", "restaurant microsite name (default from config)")

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.slotsCommand(),
		a.bookCommand(),
		a.showCommand(),
		a.updateCommand(),
		a.cancelCommand(),
		a.reasonsCommand(),
		versionCommand(),
	)

	return root, a.close
}

// Execute runs the CLI and prints any error
func Execute() int {
	root, closeApp := NewRootCommand()
	defer closeApp()

	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, a.envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if a.restaurant == "" {
		a.restaurant = cfg.API.Restaurant
	}
	a.cfg = cfg

	a.logger, err = bootstrap.Logger(cfg, "tablebook")
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	useColors := output.ResolveColors(cfg.Output.Colors) && !a.noColor
	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors)

	a.logger.Debug("configuration loaded",
		"base_url", cfg.API.BaseURL,
		"storage", cfg.Storage.Backend,
		"restaurant", a.restaurant,
	)
	return nil
}

// bookingClient returns the lazily created client
func (a *app) bookingClient(ctx context.Context) (*booking.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, cleanup, err := bootstrap.Client(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.client = client
	a.cleanup = cleanup
	return client, nil
}

func (a *app) close() {
	a.cleanup()
	if a.logger != nil {
		a.logger.Sync()
	}
}

func printError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	p := output.NewPrinter(w, w, output.ResolveColors(true))
	p.Error("%s", describeError(err))
}

// describeError adds a hint for errors the user can act on
func describeError(err error) string {
	switch {
	case booking.IsAuthError(err):
		return err.Error() + " (run 'tablebook login' to sign in again)"
	case errors.Is(err, booking.ErrSlotNotFound):
		return err.Error() + " (that time is no longer offered, run 'tablebook slots' to pick another)"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return err.Error() + " (the slot is full or cannot fit the party)"
	case errors.Is(err, booking.ErrBookingCancelled):
		return err.Error() + " (changes aren't allowed once a booking is cancelled)"
	}
	return err.Error()
}
