package library

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleLibrarian, RoleMember}

// ParseRole maps user input onto a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return r, nil
	}
	return "", invalid("Role", "oneof", fmt.Sprintf("unknown role %q", s))
}

func (r Role) String() string { return string(r) }

// LoanStatus is the persisted state of a loan.
type LoanStatus string

const (
	LoanBorrowed LoanStatus = "borrowed"
	LoanReturned LoanStatus = "returned"
)

// DisplayStatus is the label shown for a loan. Overdue only exists at read time.
type DisplayStatus string

const (
	DisplayBorrowed DisplayStatus = "Borrowed"
	DisplayOverdue  DisplayStatus = "Overdue"
	DisplayReturned DisplayStatus = "Returned"
)

// Book represents a catalog entry and its current availability.
type Book struct {
	ID                int64     `db:"id" json:"id"`
	Title             string    `db:"title" json:"title"`
	Author            string    `db:"author" json:"author"`
	ISBN              string    `db:"isbn" json:"isbn"`
	Genre             string    `db:"genre" json:"genre"`
	PublicationYear   int       `db:"publication_year" json:"publication_year"`
	Quantity          int       `db:"quantity" json:"quantity"`
	AvailableQuantity int       `db:"available_quantity" json:"available_quantity"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Available reports whether at least one copy can be lent.
func (b *Book) Available() bool { return b.AvailableQuantity > 0 }

// OnLoan is the number of copies currently out.
func (b *Book) OnLoan() int { return b.Quantity - b.AvailableQuantity }

// BookInput carries the mutable fields of a book.
type BookInput struct {
	Title           string `json:"title" validate:"required,max=255"`
	Author          string `json:"author" validate:"required,max=100"`
	ISBN            string `json:"isbn" validate:"required,max=20"`
	Genre           string `json:"genre" validate:"max=50"`
	PublicationYear int    `json:"publication_year" validate:"gte=0,lte=9999"`
	Quantity        int    `json:"quantity" validate:"gt=0"`
}

func (in BookInput) normalized() BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Genre = strings.TrimSpace(in.Genre)
	return in
}

// InputOf returns the editable fields of b, handy for partial edits.
func (b *Book) InputOf() BookInput {
	return BookInput{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		PublicationYear: b.PublicationYear,
		Quantity:        b.Quantity,
	}
}

// Loan is a stored loan row.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	AccountID  int64      `db:"user_id" json:"user_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Status     LoanStatus `db:"status" json:"status"`
}

// DisplayStatus derives the label for the loan as of now.
func (l *Loan) DisplayStatus(now time.Time) DisplayStatus {
	if l.Status == LoanReturned {
		return DisplayReturned
	}
	if dateOf(l.DueDate).Before(dateOf(now)) {
		return DisplayOverdue
	}
	return DisplayBorrowed
}

// LoanView is a loan joined with what a loan listing needs to show.
type LoanView struct {
	Loan
	BookTitle    string        `db:"book_title" json:"book_title"`
	Username     string        `db:"username" json:"username"`
	BorrowerName string        `db:"full_name" json:"full_name"`
	Display      DisplayStatus `db:"-" json:"display_status"`
}

// LoanFilter narrows ListLoans. Zero value lists everything.
type LoanFilter struct {
	AccountID int64
	OpenOnly  bool
}

// Account represents a user of the system. Password is stored as entered.
type Account struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"`
	Role      Role      `db:"role" json:"role"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AccountInput is what an admin supplies to create an account.
type AccountInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"-" validate:"required,max=100"`
	Role     Role   `json:"role" validate:"required,oneof=admin librarian member"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
}

func (in AccountInput) normalized() AccountInput {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
	return in
}

// AccountUpdate overwrites the mutable account fields. An empty Password keeps the current one.
type AccountUpdate struct {
	Password string `json:"-" validate:"max=100"`
	Role     Role   `json:"role" validate:"required,oneof=admin librarian member"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
}

func (in AccountUpdate) normalized() AccountUpdate {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
	return in
}

// UpdateOf returns the editable fields of a, with the password left blank.
func (a *Account) UpdateOf() AccountUpdate {
	return AccountUpdate{Role: a.Role, FullName: a.FullName, Email: a.Email}
}

// dateOf drops the time of day, keeping the calendar date of t in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
