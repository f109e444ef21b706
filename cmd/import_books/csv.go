package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"library-catalog/library"
)

var requiredColumns = []string{"title", "author", "isbn", "quantity"}

// readBooks parses a CSV catalog. Column order is taken from the header row.
func readBooks(r io.Reader) ([]library.BookInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var books []library.BookInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		in := library.BookInput{
			Title:  field(rec, "title"),
			Author: field(rec, "author"),
			ISBN:   field(rec, "isbn"),
			Genre:  field(rec, "genre"),
		}
		if in.Quantity, err = strconv.Atoi(field(rec, "quantity")); err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		if y := field(rec, "year"); y != "" {
			if in.PublicationYear, err = strconv.Atoi(y); err != nil {
				return nil, fmt.Errorf("line %d: year: %w", line, err)
			}
		}
		books = append(books, in)
	}
	return books, nil
}
