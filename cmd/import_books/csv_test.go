package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

const sample = `title,author,isbn,genre,year,quantity
Animal Farm,George Orwell,9780451526342,Satire,1945,2
"The Art of War",Sun Tzu,9781599869773,,,1
1984,George Orwell,9780451524935,Dystopian,1949,3
`

func TestReadBooks(t *testing.T) {
	books, err := readBooks(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, library.BookInput{Title: "Animal Farm", Author: "George Orwell", ISBN: "9780451526342", Genre: "Satire", PublicationYear: 1945, Quantity: 2}, books[0])
	assert.Equal(t, 0, books[1].PublicationYear)
}

func TestReadBooksHeaderOrder(t *testing.T) {
	books, err := readBooks(strings.NewReader("quantity,isbn,author,title\n4,123,A,T\n"))
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "T", books[0].Title)
	assert.Equal(t, 4, books[0].Quantity)
}

func TestReadBooksErrors(t *testing.T) {
	_, err := readBooks(strings.NewReader(""))
	assert.Error(t, err)
	_, err = readBooks(strings.NewReader("title,author\nx,y\n"))
	assert.ErrorContains(t, err, "isbn")
	_, err = readBooks(strings.NewReader("title,author,isbn,quantity\nx,y,1,many\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestImportSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	require.NoError(t, writeString(csvPath, sample))
	cfg := library.Config{Path: filepath.Join(dir, "lib.db"), Seed: true}

	// 1984 is part of the seed data.
	require.NoError(t, importFile(context.Background(), cfg, csvPath, zerolog.Nop()))

	db, err := library.NewDatabase(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()
	books, err := db.SearchBooks(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, books, 4)
}

func writeString(path, s string) error {
	return os.WriteFile(path, []byte(s), 0o644)
}
