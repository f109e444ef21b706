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

var accountColumns = []any{"id", "username", "password", "role", "full_name", "email", "created_at"}

// Authenticate returns the account whose username and password both match exactly.
func (d *Database) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	var a Account
	err := d.get(ctx, d.db, &a, d.eng.sql.From("accounts").Select(accountColumns...).
		Where(goqu.Ex{"username": username, "password": password}).Prepared(true))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d.log.Debug().Str("username", username).Msg("authentication failed")
			return nil, ErrInvalidCredentials
		}
		return nil, d.classify(err, "authenticate")
	}
	// MySQL compares case-insensitively under its default collation.
	if a.Username != username || a.Password != password {
		return nil, ErrInvalidCredentials
	}
	return &a, nil
}

// GetAccount returns the account with id, or an ErrNotFound error.
func (d *Database) GetAccount(ctx context.Context, id int64) (*Account, error) {
	return d.accountByID(ctx, d.db, id, false)
}

func (d *Database) accountByID(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (*Account, error) {
	ds := d.eng.sql.From("accounts").Select(accountColumns...).Where(goqu.C("id").Eq(id))
	if lock {
		ds = d.lockSelect(ds)
	}
	var a Account
	if err := d.get(ctx, q, &a, ds.Prepared(true)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("account", id)
		}
		return nil, d.classify(err, "get account")
	}
	return &a, nil
}

// ListAccounts returns accounts ordered by username, optionally only those with role.
func (d *Database) ListAccounts(ctx context.Context, role Role) ([]Account, error) {
	ds := d.eng.sql.From("accounts").Select(accountColumns...).Order(goqu.I("username").Asc())
	if role != "" {
		ds = ds.Where(goqu.C("role").Eq(string(role)))
	}
	accounts := []Account{}
	if err := d.sel(ctx, d.db, &accounts, ds.Prepared(true)); err != nil {
		return nil, d.classify(err, "list accounts")
	}
	return accounts, nil
}

// CreateAccount adds an account. Usernames are unique.
func (d *Database) CreateAccount(ctx context.Context, in AccountInput) (*Account, error) {
	in = in.normalized()
	if err := check(in); err != nil {
		return nil, err
	}
	var account *Account
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := d.insertAccount(ctx, tx, in)
		if err != nil {
			return err
		}
		account, err = d.accountByID(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.log.Info().Int64("account_id", account.ID).Str("username", account.Username).Str("role", account.Role.String()).Msg("account created")
	return account, nil
}

func (d *Database) insertAccount(ctx context.Context, q sqlx.ExtContext, in AccountInput) (int64, error) {
	id, err := d.insert(ctx, q, d.eng.sql.Insert("accounts").Rows(goqu.Record{
		"username":  in.Username,
		"password":  in.Password,
		"role":      string(in.Role),
		"full_name": in.FullName,
		"email":     in.Email,
	}))
	if err != nil {
		if d.eng.violation(err) == uniqueConstraint {
			return 0, fmt.Errorf("username %s: %w", in.Username, ErrDuplicateUsername)
		}
		return 0, d.classify(err, "insert account")
	}
	return id, nil
}

// UpdateAccount overwrites role, full name, email and, when given, the password.
// The username never changes.
func (d *Database) UpdateAccount(ctx context.Context, id int64, in AccountUpdate) (*Account, error) {
	in = in.normalized()
	if err := check(in); err != nil {
		return nil, err
	}
	rec := goqu.Record{"role": string(in.Role), "full_name": in.FullName, "email": in.Email}
	if strings.TrimSpace(in.Password) != "" {
		rec["password"] = in.Password
	}
	var account *Account
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := d.accountByID(ctx, tx, id, true); err != nil {
			return err
		}
		if _, err := d.exec(ctx, tx, d.eng.sql.Update("accounts").Set(rec).Where(goqu.C("id").Eq(id)).Prepared(true)); err != nil {
			return d.classify(err, "update account")
		}
		var err error
		account, err = d.accountByID(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.log.Info().Int64("account_id", id).Str("role", account.Role.String()).Msg("account updated")
	return account, nil
}

// DeleteAccount removes an account that has no borrowed loans. Its returned loans stay.
func (d *Database) DeleteAccount(ctx context.Context, id int64) error {
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := d.accountByID(ctx, tx, id, true); err != nil {
			return err
		}
		open, err := d.count(ctx, tx, "loans", goqu.Ex{"user_id": id, "status": string(LoanBorrowed)})
		if err != nil {
			return d.classify(err, "count open loans")
		}
		if open > 0 {
			return fmt.Errorf("account %d has %d open loans: %w", id, open, ErrHasActiveLoans)
		}
		if _, err := d.exec(ctx, tx, d.eng.sql.Delete("accounts").Where(goqu.C("id").Eq(id)).Prepared(true)); err != nil {
			return d.classify(err, "delete account")
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.log.Info().Int64("account_id", id).Msg("account deleted")
	return nil
}
