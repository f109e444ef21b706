package library

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported values for Config.Driver.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// engine captures what differs between the supported databases.
type engine struct {
	driver string
	sql    goqu.DialectWrapper
	// rowLocks is false for SQLite, which locks the whole database on BEGIN IMMEDIATE instead.
	rowLocks bool
	// returning is true when inserts must use RETURNING to learn the new id.
	returning bool
	schema    []string
}

func engineFor(driverName string) (*engine, error) {
	switch driverName {
	case DriverSQLite:
		return &engine{driver: driverName, sql: goqu.Dialect("sqlite3"), schema: sqliteSchema}, nil
	case DriverPostgres:
		return &engine{driver: driverName, sql: goqu.Dialect("postgres"), rowLocks: true, returning: true, schema: postgresSchema}, nil
	case DriverMySQL:
		return &engine{driver: driverName, sql: goqu.Dialect("mysql"), rowLocks: true, schema: mysqlSchema}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driverName)
}

// constraint is the kind of integrity violation a driver error represents.
type constraint int

const (
	noConstraint constraint = iota
	uniqueConstraint
	foreignKeyConstraint
)

func (e *engine) violation(err error) constraint {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return uniqueConstraint
		case sqlite3.ErrConstraintForeignKey:
			return foreignKeyConstraint
		}
		return noConstraint
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return uniqueConstraint
		case "23503":
			return foreignKeyConstraint
		}
		return noConstraint
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062:
			return uniqueConstraint
		case 1451, 1452:
			return foreignKeyConstraint
		}
	}
	return noConstraint
}

// unreachable reports whether err means the server could not be talked to at all.
func unreachable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrCantOpen || se.Code == sqlite3.ErrNotADB
	}
	return false
}

// ---------------------------------------------------------------------------
// Schema, one list of statements per engine
// ---------------------------------------------------------------------------

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT NOT NULL UNIQUE,
        password TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('admin','librarian','member')),
        full_name TEXT NOT NULL,
        email TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`,
	`CREATE TABLE IF NOT EXISTS books (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        author TEXT NOT NULL,
        isbn TEXT NOT NULL UNIQUE,
        genre TEXT NOT NULL DEFAULT '',
        publication_year INTEGER NOT NULL DEFAULT 0,
        quantity INTEGER NOT NULL DEFAULT 1,
        available_quantity INTEGER NOT NULL DEFAULT 1,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        CHECK (available_quantity >= 0 AND available_quantity <= quantity)
    );`,
	`CREATE TABLE IF NOT EXISTS loans (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        book_id INTEGER NOT NULL REFERENCES books(id),
        user_id INTEGER NOT NULL,
        loan_date DATE NOT NULL,
        due_date DATE NOT NULL,
        return_date DATE,
        status TEXT NOT NULL CHECK (status IN ('borrowed','returned')),
        CHECK ((status = 'borrowed' AND return_date IS NULL) OR (status = 'returned' AND return_date IS NOT NULL))
    );`,
	`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, status);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        id BIGSERIAL PRIMARY KEY,
        username VARCHAR(50) NOT NULL UNIQUE,
        password VARCHAR(100) NOT NULL,
        role VARCHAR(16) NOT NULL CHECK (role IN ('admin','librarian','member')),
        full_name VARCHAR(100) NOT NULL,
        email VARCHAR(100) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
	`CREATE TABLE IF NOT EXISTS books (
        id BIGSERIAL PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        author VARCHAR(100) NOT NULL,
        isbn VARCHAR(20) NOT NULL UNIQUE,
        genre VARCHAR(50) NOT NULL DEFAULT '',
        publication_year INTEGER NOT NULL DEFAULT 0,
        quantity INTEGER NOT NULL DEFAULT 1,
        available_quantity INTEGER NOT NULL DEFAULT 1,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        CHECK (available_quantity >= 0 AND available_quantity <= quantity)
    );`,
	`CREATE TABLE IF NOT EXISTS loans (
        id BIGSERIAL PRIMARY KEY,
        book_id BIGINT NOT NULL REFERENCES books(id),
        user_id BIGINT NOT NULL,
        loan_date DATE NOT NULL,
        due_date DATE NOT NULL,
        return_date DATE,
        status VARCHAR(16) NOT NULL CHECK (status IN ('borrowed','returned')),
        CHECK ((status = 'borrowed' AND return_date IS NULL) OR (status = 'returned' AND return_date IS NOT NULL))
    );`,
	`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, status);`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes are declared inline.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        username VARCHAR(50) NOT NULL UNIQUE,
        password VARCHAR(100) NOT NULL,
        role ENUM('admin','librarian','member') NOT NULL,
        full_name VARCHAR(100) NOT NULL,
        email VARCHAR(100) NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    ) ENGINE=InnoDB;`,
	`CREATE TABLE IF NOT EXISTS books (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        author VARCHAR(100) NOT NULL,
        isbn VARCHAR(20) NOT NULL UNIQUE,
        genre VARCHAR(50) NOT NULL DEFAULT '',
        publication_year INT NOT NULL DEFAULT 0,
        quantity INT NOT NULL DEFAULT 1,
        available_quantity INT NOT NULL DEFAULT 1,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        CHECK (available_quantity >= 0 AND available_quantity <= quantity)
    ) ENGINE=InnoDB;`,
	`CREATE TABLE IF NOT EXISTS loans (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        book_id BIGINT NOT NULL,
        user_id BIGINT NOT NULL,
        loan_date DATE NOT NULL,
        due_date DATE NOT NULL,
        return_date DATE NULL,
        status ENUM('borrowed','returned') NOT NULL,
        INDEX idx_loans_book (book_id, status),
        INDEX idx_loans_user (user_id, status),
        FOREIGN KEY (book_id) REFERENCES books(id)
    ) ENGINE=InnoDB;`,
}
