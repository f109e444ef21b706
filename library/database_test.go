package library

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source for WithClock.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var day0 = time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)

func tempConfig(t *testing.T) Config {
	t.Helper()
	return Config{Path: filepath.Join(t.TempDir(), "test.db"), Seed: true}
}

func tempDB(t *testing.T, opts ...Option) *Database {
	t.Helper()
	db, err := NewDatabase(context.Background(), tempConfig(t), opts...)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// addBook creates a book with qty copies and fails the test on error.
func addBook(t *testing.T, db *Database, isbn string, qty int) *Book {
	t.Helper()
	b, err := db.CreateBook(context.Background(), BookInput{Title: "Book " + isbn, Author: "Author", ISBN: isbn, Quantity: qty})
	require.NoError(t, err)
	return b
}

func addMember(t *testing.T, db *Database, username string) *Account {
	t.Helper()
	a, err := db.CreateAccount(context.Background(), AccountInput{
		Username: username, Password: "pw", Role: RoleMember, FullName: "Member " + username, Email: username + "@example.com",
	})
	require.NoError(t, err)
	return a
}

func TestBootstrapSeedsAdminAndBooks(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	admin, err := db.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.Equal(t, "System Administrator", admin.FullName)
	assert.Equal(t, "admin@library.com", admin.Email)

	books, err := db.SearchBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "1984", books[0].Title)
	assert.Equal(t, 3, books[0].AvailableQuantity)
	assert.Equal(t, "To Kill a Mockingbird", books[1].Title)
	assert.Equal(t, 5, books[1].Quantity)
}

func TestReopenDoesNotReseed(t *testing.T) {
	cfg := tempConfig(t)
	ctx := context.Background()

	db, err := NewDatabase(ctx, cfg)
	require.NoError(t, err)
	_, err = db.CreateBook(ctx, BookInput{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDatabase(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	books, err := db.SearchBooks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 3)
	accounts, err := db.ListAccounts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestSeedDisabled(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Seed = false
	db, err := NewDatabase(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Authenticate(context.Background(), "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(context.Background(), Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewDatabaseNeedsDSN(t *testing.T) {
	_, err := NewDatabase(context.Background(), Config{Driver: DriverPostgres})
	require.Error(t, err)
}

func TestMySQLDataSource(t *testing.T) {
	for _, dsn := range []string{
		"app:secret@tcp(db:3306)/library",
		"app:secret@tcp(db:3306)/library?parseTime=false&loc=Local",
	} {
		out, err := dataSource(Config{Driver: DriverMySQL, DSN: dsn})
		require.NoError(t, err, dsn)
		mc, err := mysql.ParseDSN(out)
		require.NoError(t, err, out)
		assert.True(t, mc.ParseTime, out)
		assert.Equal(t, time.UTC, mc.Loc, out)
		assert.Equal(t, "library", mc.DBName)
		assert.Equal(t, "db:3306", mc.Addr)
	}

	_, err := dataSource(Config{Driver: DriverMySQL, DSN: "not a dsn"})
	assert.Error(t, err)
}
