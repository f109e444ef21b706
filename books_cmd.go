package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"library-catalog/library"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func bookFlags(f *pflag.FlagSet, in *library.BookInput) {
	f.StringVar(&in.Title, "title", "", "title")
	f.StringVar(&in.Author, "author", "", "author")
	f.StringVar(&in.ISBN, "isbn", "", "ISBN")
	f.StringVar(&in.Genre, "genre", "", "genre")
	f.IntVar(&in.PublicationYear, "year", 0, "publication year")
	f.IntVar(&in.Quantity, "quantity", 1, "number of copies")
}

func (a *app) booksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "Browse and manage the catalog",
	}
	cmd.AddCommand(a.booksListCmd(), a.booksShowCmd(), a.booksAddCmd(), a.booksEditCmd(), a.booksDeleteCmd())
	return cmd
}

func (a *app) booksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list [search terms]",
		Aliases: []string{"search"},
		Short:   "List books, optionally matching title, author or ISBN",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			books, err := a.mgr.SearchBooks(cmd.Context(), acct, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.printBooks(books)
		},
	}
}

func (a *app) booksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.mgr.GetBook(cmd.Context(), acct, id)
			if err != nil {
				return err
			}
			return a.printBook(b)
		},
	}
}

func (a *app) booksAddCmd() *cobra.Command {
	var in library.BookInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.mgr.AddBook(cmd.Context(), acct, in)
			if err != nil {
				return err
			}
			if !a.jsonOut {
				fmt.Fprintf(a.out, "Book added with ID %d.\n", b.ID)
			}
			return a.printBook(b)
		},
	}
	bookFlags(cmd.Flags(), &in)
	return cmd
}

func (a *app) booksEditCmd() *cobra.Command {
	var in library.BookInput
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a book; only the given flags are updated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			current, err := a.mgr.GetBook(cmd.Context(), acct, id)
			if err != nil {
				return err
			}
			merged := current.InputOf()
			f := cmd.Flags()
			if f.Changed("title") {
				merged.Title = in.Title
			}
			if f.Changed("author") {
				merged.Author = in.Author
			}
			if f.Changed("isbn") {
				merged.ISBN = in.ISBN
			}
			if f.Changed("genre") {
				merged.Genre = in.Genre
			}
			if f.Changed("year") {
				merged.PublicationYear = in.PublicationYear
			}
			if f.Changed("quantity") {
				merged.Quantity = in.Quantity
			}
			b, err := a.mgr.EditBook(cmd.Context(), acct, id, merged)
			if err != nil {
				return err
			}
			return a.printBook(b)
		},
	}
	bookFlags(cmd.Flags(), &in)
	return cmd
}

func (a *app) booksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book that has never been lent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.mgr.RemoveBook(cmd.Context(), acct, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Book %d deleted.\n", id)
			return nil
		},
	}
}
