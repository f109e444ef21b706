package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, opts ...ManagerOption) (*LibraryManager, *Account) {
	t.Helper()
	mgr, err := OpenLibraryManager(context.Background(), tempConfig(t), nil, opts...)
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	admin, err := mgr.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return mgr, admin
}

func addAccount(t *testing.T, mgr *LibraryManager, admin *Account, username string, role Role) *Account {
	t.Helper()
	a, err := mgr.AddAccount(context.Background(), admin, AccountInput{
		Username: username, Password: username + "pw", Role: role, FullName: username, Email: username + "@example.com",
	})
	require.NoError(t, err)
	return a
}

func TestManagerLoginFailure(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.Login(context.Background(), "admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManagerEnforcesRoles(t *testing.T) {
	mgr, admin := newManager(t)
	ctx := context.Background()
	lib := addAccount(t, mgr, admin, "libby", RoleLibrarian)
	mem := addAccount(t, mgr, admin, "max", RoleMember)

	books, err := mgr.SearchBooks(ctx, mem, "")
	require.NoError(t, err)
	require.NotEmpty(t, books)

	_, err = mgr.Lend(ctx, mem, books[0].ID, mem.ID, 0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = mgr.Accounts(ctx, lib, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = mgr.Borrowers(ctx, mem)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = mgr.SearchBooks(ctx, nil, "")
	assert.ErrorIs(t, err, ErrForbidden)

	b, err := mgr.AddBook(ctx, lib, BookInput{Title: "Staff pick", Author: "a", ISBN: "x2", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, b.AvailableQuantity)
}

func TestManagerLendUsesDefaultPeriod(t *testing.T) {
	mgr, admin := newManager(t, WithLoanDays(21))
	ctx := context.Background()
	mem := addAccount(t, mgr, admin, "nora", RoleMember)
	books, err := mgr.SearchBooks(ctx, admin, "1984")
	require.NoError(t, err)
	require.Len(t, books, 1)

	loan, err := mgr.Lend(ctx, admin, books[0].ID, mem.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 21, int(loan.DueDate.Sub(loan.LoanDate).Hours()/24))
	assert.Equal(t, 21, mgr.LoanDays())
}

func TestManagerMembersManageCatalog(t *testing.T) {
	mgr, admin := newManager(t)
	ctx := context.Background()
	mem := addAccount(t, mgr, admin, "max", RoleMember)

	b, err := mgr.AddBook(ctx, mem, BookInput{Title: "Member pick", Author: "a", ISBN: "m1", Quantity: 1})
	require.NoError(t, err)

	in := b.InputOf()
	in.Quantity = 4
	b, err = mgr.EditBook(ctx, mem, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 4, b.AvailableQuantity)

	require.NoError(t, mgr.RemoveBook(ctx, mem, b.ID))
	_, err = mgr.GetBook(ctx, mem, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerMembersSeeAllLoans(t *testing.T) {
	mgr, admin := newManager(t)
	ctx := context.Background()
	olga := addAccount(t, mgr, admin, "olga", RoleMember)
	pete := addAccount(t, mgr, admin, "pete", RoleMember)
	books, err := mgr.SearchBooks(ctx, admin, "mockingbird")
	require.NoError(t, err)
	require.Len(t, books, 1)

	mine, err := mgr.Lend(ctx, admin, books[0].ID, olga.ID, 7)
	require.NoError(t, err)
	theirs, err := mgr.Lend(ctx, admin, books[0].ID, pete.ID, 7)
	require.NoError(t, err)

	loans, err := mgr.Loans(ctx, olga, LoanFilter{})
	require.NoError(t, err)
	assert.Len(t, loans, 2)

	loans, err = mgr.Loans(ctx, olga, LoanFilter{AccountID: olga.ID})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, mine.ID, loans[0].ID)

	v, err := mgr.Loan(ctx, olga, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "pete", v.Username)

	borrowers, err := mgr.Borrowers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, borrowers, 2)

	_, err = mgr.Return(ctx, olga, mine.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = mgr.Return(ctx, admin, mine.ID)
	assert.NoError(t, err)
}

func TestManagerRemoveAccount(t *testing.T) {
	mgr, admin := newManager(t)
	ctx := context.Background()
	other := addAccount(t, mgr, admin, "quinn", RoleAdmin)

	assert.ErrorIs(t, mgr.RemoveAccount(ctx, admin, admin.ID), ErrSelfDelete)
	require.NoError(t, mgr.RemoveAccount(ctx, other, admin.ID))

	_, err := mgr.Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManagerGetAccount(t *testing.T) {
	mgr, admin := newManager(t)
	ctx := context.Background()
	mem := addAccount(t, mgr, admin, "rosa", RoleMember)

	self, err := mgr.GetAccount(ctx, mem, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, "rosa", self.Username)

	_, err = mgr.GetAccount(ctx, mem, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
