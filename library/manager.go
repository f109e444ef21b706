package library

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultLoanDays is the loan period used when none is configured.
const DefaultLoanDays = 14

// LibraryManager is a thin façade over the Store, keeping CLI code simple.
// Every call names the acting account and is checked against its role.
type LibraryManager struct {
	store    Store
	loanDays int
	log      zerolog.Logger
}

// ManagerOption configures a LibraryManager.
type ManagerOption func(*LibraryManager)

// WithLoanDays sets the loan period used when Lend is given zero days.
func WithLoanDays(days int) ManagerOption {
	return func(lm *LibraryManager) {
		if days > 0 {
			lm.loanDays = days
		}
	}
}

// WithManagerLogger sets the logger for permission refusals and sign-ins.
func WithManagerLogger(l zerolog.Logger) ManagerOption {
	return func(lm *LibraryManager) { lm.log = l }
}

// NewLibraryManager wraps store.
func NewLibraryManager(store Store, opts ...ManagerOption) *LibraryManager {
	lm := &LibraryManager{store: store, loanDays: DefaultLoanDays, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// OpenLibraryManager opens the store described by cfg and wraps it.
func OpenLibraryManager(ctx context.Context, cfg Config, dbOpts []Option, opts ...ManagerOption) (*LibraryManager, error) {
	db, err := NewDatabase(ctx, cfg, dbOpts...)
	if err != nil {
		return nil, err
	}
	return NewLibraryManager(db, opts...), nil
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// LoanDays is the default loan period.
func (lm *LibraryManager) LoanDays() int { return lm.loanDays }

func (lm *LibraryManager) authorize(actor *Account, c Capability) error {
	if actor == nil {
		return fmt.Errorf("%s: not signed in: %w", c, ErrForbidden)
	}
	if !Can(actor.Role, c) {
		lm.log.Warn().Int64("account_id", actor.ID).Str("role", actor.Role.String()).Str("capability", c.String()).Msg("permission denied")
		return fmt.Errorf("%s may not %s: %w", actor.Role, c, ErrForbidden)
	}
	return nil
}

// ------------------ Sessions ------------------

// Login checks credentials and returns the account to act as.
func (lm *LibraryManager) Login(ctx context.Context, username, password string) (*Account, error) {
	a, err := lm.store.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	lm.log.Info().Int64("account_id", a.ID).Str("role", a.Role.String()).Msg("signed in")
	return a, nil
}

// ------------------ Catalog ------------------

func (lm *LibraryManager) SearchBooks(ctx context.Context, actor *Account, term string) ([]Book, error) {
	if err := lm.authorize(actor, CapBrowseCatalog); err != nil {
		return nil, err
	}
	return lm.store.SearchBooks(ctx, term)
}

func (lm *LibraryManager) GetBook(ctx context.Context, actor *Account, id int64) (*Book, error) {
	if err := lm.authorize(actor, CapBrowseCatalog); err != nil {
		return nil, err
	}
	return lm.store.GetBook(ctx, id)
}

func (lm *LibraryManager) AddBook(ctx context.Context, actor *Account, in BookInput) (*Book, error) {
	if err := lm.authorize(actor, CapManageCatalog); err != nil {
		return nil, err
	}
	return lm.store.CreateBook(ctx, in)
}

func (lm *LibraryManager) EditBook(ctx context.Context, actor *Account, id int64, in BookInput) (*Book, error) {
	if err := lm.authorize(actor, CapManageCatalog); err != nil {
		return nil, err
	}
	return lm.store.UpdateBook(ctx, id, in)
}

func (lm *LibraryManager) RemoveBook(ctx context.Context, actor *Account, id int64) error {
	if err := lm.authorize(actor, CapManageCatalog); err != nil {
		return err
	}
	return lm.store.DeleteBook(ctx, id)
}

// ------------------ Circulation ------------------

// Lend loans bookID to borrowerID. Zero days means the configured default.
func (lm *LibraryManager) Lend(ctx context.Context, actor *Account, bookID, borrowerID int64, days int) (*Loan, error) {
	if err := lm.authorize(actor, CapLend); err != nil {
		return nil, err
	}
	if days == 0 {
		days = lm.loanDays
	}
	return lm.store.CreateLoan(ctx, bookID, borrowerID, days)
}

// Return closes a loan.
func (lm *LibraryManager) Return(ctx context.Context, actor *Account, loanID int64) (*Loan, error) {
	if err := lm.authorize(actor, CapReturn); err != nil {
		return nil, err
	}
	return lm.store.CloseLoan(ctx, loanID)
}

// Loans lists loans. Accounts that cannot view every loan only see their own.
func (lm *LibraryManager) Loans(ctx context.Context, actor *Account, f LoanFilter) ([]LoanView, error) {
	if err := lm.authorize(actor, CapBrowseCatalog); err != nil {
		return nil, err
	}
	if !Can(actor.Role, CapViewAllLoans) {
		f.AccountID = actor.ID
	}
	return lm.store.ListLoans(ctx, f)
}

// Loan returns one loan, subject to the same visibility rule as Loans.
func (lm *LibraryManager) Loan(ctx context.Context, actor *Account, id int64) (*LoanView, error) {
	if err := lm.authorize(actor, CapBrowseCatalog); err != nil {
		return nil, err
	}
	v, err := lm.store.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Can(actor.Role, CapViewAllLoans) && v.AccountID != actor.ID {
		return nil, notFound("loan", id)
	}
	return v, nil
}

// Borrowers lists the member accounts a loan can be made out to.
func (lm *LibraryManager) Borrowers(ctx context.Context, actor *Account) ([]Account, error) {
	if err := lm.authorize(actor, CapLend); err != nil {
		return nil, err
	}
	return lm.store.ListAccounts(ctx, RoleMember)
}

// ------------------ Accounts ------------------

func (lm *LibraryManager) Accounts(ctx context.Context, actor *Account, role Role) ([]Account, error) {
	if err := lm.authorize(actor, CapManageAccounts); err != nil {
		return nil, err
	}
	return lm.store.ListAccounts(ctx, role)
}

func (lm *LibraryManager) GetAccount(ctx context.Context, actor *Account, id int64) (*Account, error) {
	if actor != nil && actor.ID == id {
		return lm.store.GetAccount(ctx, id)
	}
	if err := lm.authorize(actor, CapManageAccounts); err != nil {
		return nil, err
	}
	return lm.store.GetAccount(ctx, id)
}

func (lm *LibraryManager) AddAccount(ctx context.Context, actor *Account, in AccountInput) (*Account, error) {
	if err := lm.authorize(actor, CapManageAccounts); err != nil {
		return nil, err
	}
	return lm.store.CreateAccount(ctx, in)
}

func (lm *LibraryManager) EditAccount(ctx context.Context, actor *Account, id int64, in AccountUpdate) (*Account, error) {
	if err := lm.authorize(actor, CapManageAccounts); err != nil {
		return nil, err
	}
	return lm.store.UpdateAccount(ctx, id, in)
}

// RemoveAccount deletes an account other than the actor's own.
func (lm *LibraryManager) RemoveAccount(ctx context.Context, actor *Account, id int64) error {
	if err := lm.authorize(actor, CapManageAccounts); err != nil {
		return err
	}
	if actor.ID == id {
		return ErrSelfDelete
	}
	return lm.store.DeleteAccount(ctx, id)
}
