// Package user defines bakery accounts as a tagged variant: every User is
// either a customer or an employee, and Role dispatches on that tag.
package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/snehjoshi/bakery/internal/validate"
)

// ErrUnknownKind is returned when decoding an unrecognised account kind.
var ErrUnknownKind = errors.New("user: unknown kind")

// Kind tags the variant a User holds.
type Kind int

const (
	KindCustomer Kind = iota + 1
	KindEmployee
)

func (k Kind) String() string {
	switch k {
	case KindCustomer:
		return "customer"
	case KindEmployee:
		return "employee"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindCustomer && k != KindEmployee {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "customer":
		*k = KindCustomer
	case "employee":
		*k = KindEmployee
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, b)
	}
	return nil
}

// Role is the access level an account acts with.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// User is an account. Exactly one of Customer and Employee is set, matching
// Kind. Email is the identity key: trimmed, lower-cased and compared
// case-insensitively.
type User struct {
	Kind         Kind             `json:"kind"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"password_hash"`
	Customer     *CustomerProfile `json:"customer,omitempty"`
	Employee     *EmployeeProfile `json:"employee,omitempty"`
}

// EmployeeProfile is the employee side of the variant.
type EmployeeProfile struct {
	Manager bool `json:"manager"`
}

// Details are the identity fields shared by every account.
type Details struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
}

func newUser(kind Kind, d Details) (*User, error) {
	d.Email = validate.Email(d.Email)
	if err := validate.Struct(d); err != nil {
		return nil, err
	}
	// The guest domain is reserved; guest orders need no credentials.
	if IsGuestEmail(d.Email) {
		return nil, validate.Field("email", "excludes", GuestDomain)
	}
	return &User{
		Kind:      kind,
		FirstName: validate.Line(d.FirstName),
		LastName:  validate.Line(d.LastName),
		Email:     d.Email,
	}, nil
}

// NewCustomer returns a customer account with empty order lists.
func NewCustomer(d Details, c Contact) (*User, error) {
	u, err := newUser(KindCustomer, d)
	if err != nil {
		return nil, err
	}
	u.Customer = newProfile(c)
	return u, nil
}

// NewEmployee returns an employee account; manager grants manager access.
func NewEmployee(d Details, manager bool) (*User, error) {
	u, err := newUser(KindEmployee, d)
	if err != nil {
		return nil, err
	}
	u.Employee = &EmployeeProfile{Manager: manager}
	return u, nil
}

// Probe returns a key holding only the identity field, for table lookups.
func Probe(email string) *User {
	return &User{Email: validate.Email(email)}
}

// Role dispatches on the variant tag.
func (u *User) Role() Role {
	switch {
	case u.Kind == KindEmployee && u.Employee != nil && u.Employee.Manager:
		return RoleManager
	case u.Kind == KindEmployee:
		return RoleEmployee
	default:
		return RoleCustomer
	}
}

// IsManager reports whether u holds manager access.
func (u *User) IsManager() bool { return u.Role() == RoleManager }

// HashCode hashes the lower-cased email, folded to 32 bits.
func (u *User) HashCode() uint32 {
	h := xxhash.Sum64String(strings.ToLower(u.Email))
	return uint32(h ^ h>>32)
}

// Equal compares accounts by email, ignoring case.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return strings.EqualFold(u.Email, other.Email)
}

// FullName joins the first and last names.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) String() string {
	switch u.Kind {
	case KindEmployee:
		role := "Employee"
		if u.IsManager() {
			role = "Manager"
		}
		return fmt.Sprintf("Employee [%s %s | Email: %s | Role: %s]", u.FirstName, u.LastName, u.Email, role)
	default:
		c := u.Customer
		if c == nil {
			c = &CustomerProfile{}
		}
		return fmt.Sprintf("Customer [%s %s | Email: %s | Addr: %s, %s, %s %s | Phone: %s]",
			u.FirstName, u.LastName, u.Email, c.Address, c.City, c.State, c.Zip, c.Phone)
	}
}

// GuestDomain is the email domain of every guest account.
const GuestDomain = "guest.invalid"

// IsGuestEmail reports whether email belongs to a guest account.
func IsGuestEmail(email string) bool {
	return strings.HasSuffix(validate.Email(email), "@"+GuestDomain)
}

// NewGuest returns an unregistered customer identified by id. Guests are
// never stored in the directory.
func NewGuest(id string) *User {
	return &User{
		Kind:      KindCustomer,
		FirstName: "Guest",
		Email:     "guest-" + strings.ToLower(id) + "@" + GuestDomain,
		Customer:  &CustomerProfile{Guest: true, Unshipped: newOrderList(), Shipped: newOrderList()},
	}
}

// Restore rebuilds a stored account. Order lists start empty; the caller
// repopulates them from stored orders.
func Restore(u User) (*User, error) {
	u.Email = validate.Email(u.Email)
	if u.Email == "" {
		return nil, validate.Field("email", "required", "")
	}
	out := u
	switch u.Kind {
	case KindCustomer:
		if out.Customer == nil {
			out.Customer = &CustomerProfile{}
		} else {
			cp := *out.Customer
			out.Customer = &cp
		}
		out.Customer.Unshipped, out.Customer.Shipped = nil, nil
		out.Customer.ensureLists()
		out.Employee = nil
	case KindEmployee:
		if out.Employee == nil {
			out.Employee = &EmployeeProfile{}
		}
		out.Customer = nil
	default:
		return nil, fmt.Errorf("%w: %d for %s", ErrUnknownKind, int(u.Kind), u.Email)
	}
	return &out, nil
}
