package library

import "context"

// Catalog is the book side of the store.
type Catalog interface {
	SearchBooks(ctx context.Context, term string) ([]Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, in BookInput) (*Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// Ledger records loans and keeps book availability in step with them.
type Ledger interface {
	CreateLoan(ctx context.Context, bookID, accountID int64, days int) (*Loan, error)
	CloseLoan(ctx context.Context, loanID int64) (*Loan, error)
	GetLoan(ctx context.Context, id int64) (*LoanView, error)
	ListLoans(ctx context.Context, f LoanFilter) ([]LoanView, error)
}

// Directory holds accounts and their credentials.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
	ListAccounts(ctx context.Context, role Role) ([]Account, error)
	CreateAccount(ctx context.Context, in AccountInput) (*Account, error)
	UpdateAccount(ctx context.Context, id int64, in AccountUpdate) (*Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// Store is everything the manager needs. *Database implements it.
type Store interface {
	Catalog
	Ledger
	Directory
	Close() error
}

var _ Store = (*Database)(nil)
