package library

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// DefaultAdmin is the account installed on a fresh store so there is always someone to sign in as.
var DefaultAdmin = AccountInput{
	Username: "admin",
	Password: "admin123",
	Role:     RoleAdmin,
	FullName: "System Administrator",
	Email:    "admin@library.com",
}

var sampleBooks = []BookInput{
	{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084", Genre: "Fiction", PublicationYear: 1960, Quantity: 5},
	{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", Genre: "Dystopian", PublicationYear: 1949, Quantity: 3},
}

// seed runs in the first migration, so later startups never add these rows back.
func (d *Database) seed(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := d.insertAccount(ctx, tx, DefaultAdmin); err != nil {
		return err
	}
	for _, b := range sampleBooks {
		if _, err := d.insertBook(ctx, tx, b); err != nil {
			return err
		}
	}
	d.log.Info().Str("admin", DefaultAdmin.Username).Int("books", len(sampleBooks)).Msg("seeded new store")
	return nil
}
