// Package user holds the storefront account model used by the back-office.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role separates shoppers from back-office staff.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidRole is returned for role strings outside the enum.
	ErrInvalidRole = errors.New("invalid role")
	// ErrLastAdmin is returned when deleting or demoting the only admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleAdmin:
		return Role(s), nil
	default:
		return "", errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

// User is a storefront account. Password material never leaves the storage
// layer; this type is safe to serialize.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	OrderCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository defines the back-office user operations.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// UpdateRole changes a user's role. Demoting the only admin returns
	// ErrLastAdmin.
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)
	// Delete removes a user. Deleting the only admin returns ErrLastAdmin.
	Delete(ctx context.Context, id string) error
}
