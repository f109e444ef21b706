package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

// app carries what every subcommand needs: configuration, the open manager and the output sink.
type app struct {
	cfgPath  string
	envFile  string
	dbPath   string
	driver   string
	dsn      string
	logLevel string
	noSeed   bool
	jsonOut  bool
	user     string
	password string

	cfg config.Config
	log zerolog.Logger
	mgr *library.LibraryManager
	out io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := &app{out: os.Stdout}
	err := a.execute(ctx, nil)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library catalog, loans and accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	f := root.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "YAML config file (default "+config.DefaultPath+" if present)")
	f.StringVar(&a.envFile, "env-file", "", "dotenv file (default .env if present)")
	f.StringVar(&a.dbPath, "db", "", "SQLite database file")
	f.StringVar(&a.driver, "driver", "", "database driver: sqlite3, postgres or mysql")
	f.StringVar(&a.dsn, "dsn", "", "data source name for postgres or mysql")
	f.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	f.BoolVar(&a.noSeed, "no-seed", false, "do not install the default administrator and sample books")
	f.BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	f.StringVarP(&a.user, "user", "u", "", "username to act as (or LIBRARY_USER)")
	f.StringVarP(&a.password, "password", "p", "", "password (or LIBRARY_PASSWORD, or prompt)")

	root.AddCommand(a.initCmd(), a.loginCmd(), a.booksCmd(), a.loansCmd(), a.accountsCmd())
	return root
}

// execute runs the command line (os.Args when args is nil) and closes the store
// afterwards, whether or not the command failed.
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	err := root.ExecuteContext(ctx)
	if a.mgr != nil {
		if cerr := a.mgr.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// open loads configuration, applies flags and opens the store.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath, a.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = a.dbPath
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = a.driver
	}
	if flags.Changed("dsn") {
		cfg.Database.DSN = a.dsn
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if a.noSeed {
		cfg.Database.Seed = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	a.mgr, err = library.OpenLibraryManager(ctx, cfg.Store(),
		[]library.Option{library.WithLogger(a.log.With().Str("component", "store").Logger())},
		library.WithLoanDays(cfg.LoanDays),
		library.WithManagerLogger(a.log.With().Str("component", "manager").Logger()),
	)
	return err
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema (and seed data) if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			where := a.cfg.Database.Path
			if a.cfg.Database.Driver != library.DriverSQLite {
				where = a.cfg.Database.Driver
			}
			fmt.Fprintf(a.out, "Store ready (%s).\n", where)
			return nil
		},
	}
}

// describe turns an error into the single line shown to the user.
func describe(err error) string {
	var ve *library.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, library.ErrConnectionFailure):
		return "cannot reach the database: " + err.Error()
	case errors.Is(err, library.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, library.ErrForbidden):
		return "you are not allowed to do that"
	case errors.Is(err, library.ErrUnavailable):
		return "no copies of that book are available"
	case errors.Is(err, library.ErrHasActiveLoans):
		return "that account still has books on loan"
	}
	return err.Error()
}
