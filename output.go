package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"library-catalog/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) table(header string, rows func(w *tabwriter.Writer)) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func (a *app) printBooks(books []library.Book) error {
	if a.jsonOut {
		return a.printJSON(books)
	}
	if len(books) == 0 {
		fmt.Fprintln(a.out, "No books found.")
		return nil
	}
	return a.table("ID\tTITLE\tAUTHOR\tISBN\tGENRE\tYEAR\tAVAILABLE", func(w *tabwriter.Writer) {
		for _, b := range books {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d/%d\n", b.ID, truncateString(b.Title, 40), truncateString(b.Author, 25),
				b.ISBN, truncateString(b.Genre, 15), year(b.PublicationYear), b.AvailableQuantity, b.Quantity)
		}
	})
}

func (a *app) printBook(b *library.Book) error {
	if a.jsonOut {
		return a.printJSON(b)
	}
	fmt.Fprintf(a.out, "ID:        %d\n", b.ID)
	fmt.Fprintf(a.out, "Title:     %s\n", b.Title)
	fmt.Fprintf(a.out, "Author:    %s\n", b.Author)
	fmt.Fprintf(a.out, "ISBN:      %s\n", b.ISBN)
	fmt.Fprintf(a.out, "Genre:     %s\n", b.Genre)
	fmt.Fprintf(a.out, "Year:      %s\n", year(b.PublicationYear))
	fmt.Fprintf(a.out, "Copies:    %d (%d available, %d on loan)\n", b.Quantity, b.AvailableQuantity, b.OnLoan())
	return nil
}

func (a *app) printLoans(loans []library.LoanView) error {
	if a.jsonOut {
		return a.printJSON(loans)
	}
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "No loans found.")
		return nil
	}
	now := time.Now()
	return a.table("ID\tBOOK\tBORROWER\tLOANED\tDUE\tRETURNED\tSTATUS", func(w *tabwriter.Writer) {
		for _, l := range loans {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, truncateString(l.BookTitle, 35), borrower(l),
				day(l.LoanDate), due(l, now), returned(l), l.Display)
		}
	})
}

func (a *app) printLoan(l *library.LoanView) error {
	return a.printLoans([]library.LoanView{*l})
}

func (a *app) printAccounts(accounts []library.Account) error {
	if a.jsonOut {
		return a.printJSON(accounts)
	}
	if len(accounts) == 0 {
		fmt.Fprintln(a.out, "No accounts found.")
		return nil
	}
	return a.table("ID\tUSERNAME\tROLE\tNAME\tEMAIL\tCREATED", func(w *tabwriter.Writer) {
		for _, ac := range accounts {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", ac.ID, ac.Username, ac.Role,
				truncateString(ac.FullName, 30), ac.Email, humanize.Time(ac.CreatedAt))
		}
	})
}

func (a *app) printAccount(ac *library.Account) error {
	return a.printAccounts([]library.Account{*ac})
}

func borrower(l library.LoanView) string {
	if l.Username == "" {
		return fmt.Sprintf("(deleted #%d)", l.AccountID)
	}
	return fmt.Sprintf("%s (%s)", truncateString(l.BorrowerName, 25), l.Username)
}

func day(t time.Time) string { return t.Format("2006-01-02") }

func due(l library.LoanView, now time.Time) string {
	if l.Status == library.LoanReturned {
		return day(l.DueDate)
	}
	// Relative to the end of the due day.
	return fmt.Sprintf("%s (%s)", day(l.DueDate), humanize.RelTime(l.DueDate.AddDate(0, 0, 1), now, "ago", "left"))
}

func returned(l library.LoanView) string {
	if l.ReturnDate == nil {
		return "-"
	}
	return day(*l.ReturnDate)
}

func year(y int) string {
	if y == 0 {
		return "-"
	}
	return strconv.Itoa(y)
}

// truncateString truncates a string to a maximum length and adds "..." if needed
func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
