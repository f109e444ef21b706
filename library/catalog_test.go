package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBooks(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, err := db.CreateBook(ctx, BookInput{Title: "100% Go", Author: "Gopher", ISBN: "111", Quantity: 1})
	require.NoError(t, err)
	_, err = db.CreateBook(ctx, BookInput{Title: "Under_score", Author: "Lee Child", ISBN: "222", Quantity: 1})
	require.NoError(t, err)

	cases := []struct {
		term string
		want []string
	}{
		{"", []string{"100% Go", "1984", "To Kill a Mockingbird", "Under_score"}},
		{"   ", []string{"100% Go", "1984", "To Kill a Mockingbird", "Under_score"}},
		{"ORWELL", []string{"1984"}},
		{"lee", []string{"To Kill a Mockingbird", "Under_score"}},
		{"978045", []string{"1984"}},
		{"%", []string{"100% Go"}},
		{"_", []string{"Under_score"}},
		{"nothing like this", nil},
	}
	for _, tc := range cases {
		t.Run(tc.term, func(t *testing.T) {
			books, err := db.SearchBooks(ctx, tc.term)
			require.NoError(t, err)
			var got []string
			for _, b := range books {
				got = append(got, b.Title)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateBook(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	b, err := db.CreateBook(ctx, BookInput{Title: "  Dune ", Author: "Frank Herbert", ISBN: "9780441013593", Genre: "SF", PublicationYear: 1965, Quantity: 4})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, 4, b.AvailableQuantity)
	assert.False(t, b.CreatedAt.IsZero())

	_, err = db.CreateBook(ctx, BookInput{Title: "Dune again", Author: "X", ISBN: "9780441013593", Quantity: 1})
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestCreateBookValidation(t *testing.T) {
	db := tempDB(t)
	cases := map[string]struct {
		in    BookInput
		field string
	}{
		"no title":      {BookInput{Author: "a", ISBN: "1", Quantity: 1}, "Title"},
		"blank author":  {BookInput{Title: "t", Author: "  ", ISBN: "1", Quantity: 1}, "Author"},
		"no isbn":       {BookInput{Title: "t", Author: "a", Quantity: 1}, "ISBN"},
		"zero quantity": {BookInput{Title: "t", Author: "a", ISBN: "1"}, "Quantity"},
		"negative year": {BookInput{Title: "t", Author: "a", ISBN: "1", Quantity: 1, PublicationYear: -5}, "PublicationYear"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := db.CreateBook(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tc.field)
		})
	}
}

func TestGetBookNotFound(t *testing.T) {
	db := tempDB(t)
	_, err := db.GetBook(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBookRecomputesAvailability(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	b := addBook(t, db, "333", 3)
	m := addMember(t, db, "alice")

	_, err := db.CreateLoan(ctx, b.ID, m.ID, 7)
	require.NoError(t, err)
	_, err = db.CreateLoan(ctx, b.ID, m.ID, 7)
	require.NoError(t, err)

	in := b.InputOf()
	in.Quantity = 1
	_, err = db.UpdateBook(ctx, b.ID, in)
	assert.ErrorIs(t, err, ErrQuantityBelowLoaned)

	in.Quantity = 5
	in.Title = "Renamed"
	got, err := db.UpdateBook(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, 3, got.AvailableQuantity)

	in.Quantity = 2
	got, err = db.UpdateBook(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func TestUpdateBookErrors(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	a := addBook(t, db, "444", 1)
	addBook(t, db, "555", 1)

	in := a.InputOf()
	in.ISBN = "555"
	_, err := db.UpdateBook(ctx, a.ID, in)
	assert.ErrorIs(t, err, ErrDuplicateISBN)

	_, err = db.UpdateBook(ctx, 9999, a.InputOf())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	free := addBook(t, db, "666", 1)
	lent := addBook(t, db, "777", 1)
	m := addMember(t, db, "bob")

	require.NoError(t, db.DeleteBook(ctx, free.ID))
	_, err := db.GetBook(ctx, free.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteBook(ctx, free.ID), ErrNotFound)

	loan, err := db.CreateLoan(ctx, lent.ID, m.ID, 3)
	require.NoError(t, err)
	assert.ErrorIs(t, db.DeleteBook(ctx, lent.ID), ErrBookHasLoans)

	// Returned loans still reference the book.
	_, err = db.CloseLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, db.DeleteBook(ctx, lent.ID), ErrBookHasLoans)
}
