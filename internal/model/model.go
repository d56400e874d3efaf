// Package model defines the core domain types for the library lending system.
package model

import "time"

// LoanStatus is the lifecycle state of a loan transaction.
// A transaction starts as StatusBorrowed and can only ever move to
// StatusReturned, which is terminal.
type LoanStatus string

const (
	StatusBorrowed LoanStatus = "borrowed"
	StatusReturned LoanStatus = "returned"
)

// Book represents one catalog entry with its copy counts.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CoverImage      string    `json:"cover_image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OnLoan returns the number of copies currently borrowed.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// IsAvailable returns true when at least one copy can be borrowed.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// Transaction represents one copy of a book being borrowed by one user
// until returned. Transactions are never deleted; history is permanent.
type Transaction struct {
	ID         string     `json:"id"`
	BookID     string     `json:"book_id"`
	UserID     string     `json:"user_id"`
	Status     LoanStatus `json:"status"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// IsActive returns true while the copy is still out.
func (t *Transaction) IsActive() bool {
	return t.Status == StatusBorrowed
}

// User is the identity collaborator consumed by the lending API.
// The lending engine itself only ever sees the opaque ID.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Roles assignable to a user.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// CreateBookRequest is the payload for adding a catalog entry.
type CreateBookRequest struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	Quantity   int    `json:"quantity"`
	CoverImage string `json:"cover_image,omitempty"`
}

// UpdateBookRequest is the payload for editing a catalog entry.
// Nil fields are left unchanged.
type UpdateBookRequest struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	TotalCopies *int    `json:"total_copies,omitempty"`
	CoverImage  *string `json:"cover_image,omitempty"`
}

// BorrowRequest is the payload for borrowing a copy.
type BorrowRequest struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

// ReturnRequest is the payload for returning a loan.
// ReturnDate is optional; the server clock is used when absent.
type ReturnRequest struct {
	TransactionID string     `json:"transaction_id"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
}

// RegisterRequest is the payload for creating a user account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the payload for obtaining a token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the authenticated user.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
