package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

var loanColumns = []any{"id", "book_id", "user_id", "loan_date", "due_date", "return_date", "status"}

// CreateLoan lends one copy of a book to an account for the given number of days.
//
// The book row is locked before its availability is read, so concurrent loans against
// the last copy cannot both succeed. The loan insert and the decrement commit together.
func (d *Database) CreateLoan(ctx context.Context, bookID, accountID int64, days int) (*Loan, error) {
	if days <= 0 {
		return nil, invalid("Days", "gt", "loan period must be at least one day")
	}
	var loan *Loan
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := d.bookByID(ctx, tx, bookID, true)
		if err != nil {
			return err
		}
		if _, err := d.accountByID(ctx, tx, accountID, true); err != nil {
			return err
		}
		if !book.Available() {
			return fmt.Errorf("book %d: %w", bookID, ErrUnavailable)
		}

		today := d.today()
		id, err := d.insert(ctx, tx, d.eng.sql.Insert("loans").Rows(goqu.Record{
			"book_id":   bookID,
			"user_id":   accountID,
			"loan_date": today,
			"due_date":  today.AddDate(0, 0, days),
			"status":    string(LoanBorrowed),
		}))
		if err != nil {
			return d.classify(err, "insert loan")
		}

		res, err := d.exec(ctx, tx, d.eng.sql.Update("books").
			Set(goqu.Record{"available_quantity": goqu.L("available_quantity - 1")}).
			Where(goqu.C("id").Eq(bookID), goqu.C("available_quantity").Gt(0)).
			Prepared(true))
		if err != nil {
			return d.classify(err, "decrement availability")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("book %d: %w", bookID, ErrUnavailable)
		}

		loan, err = d.loanByID(ctx, tx, id, false)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			d.log.Warn().Int64("book_id", bookID).Int64("account_id", accountID).Msg("loan refused, no copies left")
		}
		return nil, err
	}
	d.log.Info().Int64("loan_id", loan.ID).Int64("book_id", bookID).Int64("account_id", accountID).
		Time("due", loan.DueDate).Msg("loan created")
	return loan, nil
}

// CloseLoan marks a borrowed loan returned as of today and gives the copy back.
// Closing a loan twice fails with ErrAlreadyReturned and changes nothing.
func (d *Database) CloseLoan(ctx context.Context, loanID int64) (*Loan, error) {
	var loan *Loan
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := d.loanByID(ctx, tx, loanID, true)
		if err != nil {
			return err
		}
		if current.Status == LoanReturned {
			return fmt.Errorf("loan %d: %w", loanID, ErrAlreadyReturned)
		}

		res, err := d.exec(ctx, tx, d.eng.sql.Update("loans").
			Set(goqu.Record{"return_date": d.today(), "status": string(LoanReturned)}).
			Where(goqu.C("id").Eq(loanID), goqu.C("status").Eq(string(LoanBorrowed))).
			Prepared(true))
		if err != nil {
			return d.classify(err, "close loan")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("loan %d: %w", loanID, ErrAlreadyReturned)
		}

		if _, err := d.exec(ctx, tx, d.eng.sql.Update("books").
			Set(goqu.Record{"available_quantity": goqu.L("available_quantity + 1")}).
			Where(goqu.C("id").Eq(current.BookID)).
			Prepared(true)); err != nil {
			return d.classify(err, "increment availability")
		}

		loan, err = d.loanByID(ctx, tx, loanID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.log.Info().Int64("loan_id", loanID).Int64("book_id", loan.BookID).Msg("loan closed")
	return loan, nil
}

func (d *Database) loanByID(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (*Loan, error) {
	ds := d.eng.sql.From("loans").Select(loanColumns...).Where(goqu.C("id").Eq(id))
	if lock {
		ds = d.lockSelect(ds)
	}
	var l Loan
	if err := d.get(ctx, q, &l, ds.Prepared(true)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("loan", id)
		}
		return nil, d.classify(err, "get loan")
	}
	return &l, nil
}

// loanViews joins loans with the book title and borrower. Borrowers that were deleted
// after returning everything show with empty names.
func (d *Database) loanViews() *goqu.SelectDataset {
	return d.eng.sql.From(goqu.T("loans").As("l")).
		LeftJoin(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		LeftJoin(goqu.T("accounts").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("l.user_id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.book_id"), goqu.I("l.user_id"),
			goqu.I("l.loan_date"), goqu.I("l.due_date"), goqu.I("l.return_date"), goqu.I("l.status"),
			goqu.COALESCE(goqu.I("b.title"), goqu.L("''")).As("book_title"),
			goqu.COALESCE(goqu.I("a.username"), goqu.L("''")).As("username"),
			goqu.COALESCE(goqu.I("a.full_name"), goqu.L("''")).As("full_name"),
		)
}

// GetLoan returns one loan with its display status as of now.
func (d *Database) GetLoan(ctx context.Context, id int64) (*LoanView, error) {
	var v LoanView
	if err := d.get(ctx, d.db, &v, d.loanViews().Where(goqu.I("l.id").Eq(id)).Prepared(true)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("loan", id)
		}
		return nil, d.classify(err, "get loan")
	}
	v.Display = v.DisplayStatus(d.now())
	return &v, nil
}

// ListLoans returns loans newest first.
func (d *Database) ListLoans(ctx context.Context, f LoanFilter) ([]LoanView, error) {
	ds := d.loanViews().Order(goqu.I("l.loan_date").Desc(), goqu.I("l.id").Desc())
	if f.AccountID != 0 {
		ds = ds.Where(goqu.I("l.user_id").Eq(f.AccountID))
	}
	if f.OpenOnly {
		ds = ds.Where(goqu.I("l.status").Eq(string(LoanBorrowed)))
	}
	views := []LoanView{}
	if err := d.sel(ctx, d.db, &views, ds.Prepared(true)); err != nil {
		return nil, d.classify(err, "list loans")
	}
	now := d.now()
	for i := range views {
		views[i].Display = views[i].DisplayStatus(now)
	}
	return views, nil
}
