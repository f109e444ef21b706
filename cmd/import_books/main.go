// Command import_books loads a CSV catalog into the library store.
//
// The CSV needs a header row naming at least title, author, isbn and quantity; genre and
// year are optional. Books whose ISBN is already catalogued are skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

func main() {
	var cfgPath, dbPath string
	cmd := &cobra.Command{
		Use:          "import_books <file.csv>",
		Short:        "Import books from a CSV file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath, "")
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.Database.Path = dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			return importFile(cmd.Context(), cfg.Store(), args[0], log)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, cfg library.Config, path string, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	books, err := readBooks(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	db, err := library.NewDatabase(ctx, cfg, library.WithLogger(log.Level(zerolog.WarnLevel)))
	if err != nil {
		return err
	}
	defer db.Close()

	var added, skipped, failed int
	for _, in := range books {
		b, err := db.CreateBook(ctx, in)
		switch {
		case err == nil:
			fmt.Printf("SUCCESS %-5d %s\n", b.ID, truncateString(b.Title, 60))
			added++
		case errors.Is(err, library.ErrDuplicateISBN):
			fmt.Printf("SKIPPED       %s (isbn %s already catalogued)\n", truncateString(in.Title, 60), in.ISBN)
			skipped++
		default:
			fmt.Printf("ERROR         %s: %v\n", truncateString(in.Title, 60), err)
			failed++
		}
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Imported: %d, skipped: %d, errors: %d\n", added, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d books could not be imported", failed)
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= maxLen {
		return string(r)
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
