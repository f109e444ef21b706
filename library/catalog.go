package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

var bookColumns = []any{"id", "title", "author", "isbn", "genre", "publication_year", "quantity", "available_quantity", "created_at"}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchBooks returns books whose title, author or isbn contains term, ignoring case.
// A blank term returns the whole catalog. Results are ordered by title.
func (d *Database) SearchBooks(ctx context.Context, term string) ([]Book, error) {
	ds := d.eng.sql.From("books").Select(bookColumns...).Order(goqu.I("title").Asc(), goqu.I("id").Asc())
	if term = strings.TrimSpace(term); term != "" {
		p := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		ds = ds.Where(goqu.Or(
			goqu.L("LOWER(title) LIKE ? ESCAPE '!'", p),
			goqu.L("LOWER(author) LIKE ? ESCAPE '!'", p),
			goqu.L("LOWER(isbn) LIKE ? ESCAPE '!'", p),
		))
	}
	books := []Book{}
	if err := d.sel(ctx, d.db, &books, ds.Prepared(true)); err != nil {
		return nil, d.classify(err, "search books")
	}
	return books, nil
}

// GetBook returns the book with id, or an ErrNotFound error.
func (d *Database) GetBook(ctx context.Context, id int64) (*Book, error) {
	return d.bookByID(ctx, d.db, id, false)
}

func (d *Database) bookByID(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (*Book, error) {
	ds := d.eng.sql.From("books").Select(bookColumns...).Where(goqu.C("id").Eq(id))
	if lock {
		ds = d.lockSelect(ds)
	}
	var b Book
	if err := d.get(ctx, q, &b, ds.Prepared(true)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("book", id)
		}
		return nil, d.classify(err, "get book")
	}
	return &b, nil
}

// CreateBook adds a book with every copy available.
func (d *Database) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	in = in.normalized()
	if err := check(in); err != nil {
		return nil, err
	}
	var book *Book
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := d.insertBook(ctx, tx, in)
		if err != nil {
			return err
		}
		book, err = d.bookByID(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.log.Info().Int64("book_id", book.ID).Str("isbn", book.ISBN).Msg("book created")
	return book, nil
}

func (d *Database) insertBook(ctx context.Context, q sqlx.ExtContext, in BookInput) (int64, error) {
	id, err := d.insert(ctx, q, d.eng.sql.Insert("books").Rows(goqu.Record{
		"title":              in.Title,
		"author":             in.Author,
		"isbn":               in.ISBN,
		"genre":              in.Genre,
		"publication_year":   in.PublicationYear,
		"quantity":           in.Quantity,
		"available_quantity": in.Quantity,
	}))
	if err != nil {
		if d.eng.violation(err) == uniqueConstraint {
			return 0, fmt.Errorf("isbn %s: %w", in.ISBN, ErrDuplicateISBN)
		}
		return 0, d.classify(err, "insert book")
	}
	return id, nil
}

// UpdateBook overwrites the book's fields. Quantity may not drop below the copies on loan;
// available_quantity is recomputed from the open loans.
func (d *Database) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	in = in.normalized()
	if err := check(in); err != nil {
		return nil, err
	}
	var book *Book
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := d.bookByID(ctx, tx, id, true); err != nil {
			return err
		}
		open, err := d.count(ctx, tx, "loans", goqu.Ex{"book_id": id, "status": string(LoanBorrowed)})
		if err != nil {
			return d.classify(err, "count open loans")
		}
		if in.Quantity < open {
			return fmt.Errorf("book %d has %d copies on loan: %w", id, open, ErrQuantityBelowLoaned)
		}
		_, err = d.exec(ctx, tx, d.eng.sql.Update("books").Set(goqu.Record{
			"title":              in.Title,
			"author":             in.Author,
			"isbn":               in.ISBN,
			"genre":              in.Genre,
			"publication_year":   in.PublicationYear,
			"quantity":           in.Quantity,
			"available_quantity": in.Quantity - open,
		}).Where(goqu.C("id").Eq(id)).Prepared(true))
		if err != nil {
			if d.eng.violation(err) == uniqueConstraint {
				return fmt.Errorf("isbn %s: %w", in.ISBN, ErrDuplicateISBN)
			}
			return d.classify(err, "update book")
		}
		book, err = d.bookByID(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.log.Info().Int64("book_id", id).Int("quantity", book.Quantity).Int("available", book.AvailableQuantity).Msg("book updated")
	return book, nil
}

// DeleteBook removes a book that no loan has ever referenced.
func (d *Database) DeleteBook(ctx context.Context, id int64) error {
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := d.bookByID(ctx, tx, id, true); err != nil {
			return err
		}
		n, err := d.count(ctx, tx, "loans", goqu.Ex{"book_id": id})
		if err != nil {
			return d.classify(err, "count loans")
		}
		if n > 0 {
			return fmt.Errorf("book %d has %d loans: %w", id, n, ErrBookHasLoans)
		}
		if _, err := d.exec(ctx, tx, d.eng.sql.Delete("books").Where(goqu.C("id").Eq(id)).Prepared(true)); err != nil {
			if d.eng.violation(err) == foreignKeyConstraint {
				return fmt.Errorf("book %d: %w", id, ErrBookHasLoans)
			}
			return d.classify(err, "delete book")
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.log.Info().Int64("book_id", id).Msg("book deleted")
	return nil
}
