// Package auth keeps customer and employee accounts in two fixed-size hash
// tables keyed by email and checks credentials against them.
//
// Lookups build an identity-only probe with user.Probe, Get the stored
// record and compare the stored bcrypt hash. Directory does no locking.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/snehjoshi/bakery/internal/container/hashtable"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/user"
	"github.com/snehjoshi/bakery/internal/validate"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrNotManager is returned when manager access is requested by an
	// employee without it.
	ErrNotManager = errors.New("auth: manager access required")

	// ErrAlreadyExists is returned when registering an email already on file.
	ErrAlreadyExists = errors.New("auth: account already exists")
)

// DefaultBuckets is the bucket count of each table.
const DefaultBuckets = 20

// Options configures a Directory.
type Options struct {
	CustomerBuckets int
	EmployeeBuckets int
	BcryptCost      int
	Guests          ident.Generator // ids for guest accounts
}

// Directory holds every registered account.
type Directory struct {
	customers *hashtable.Table[*user.User]
	employees *hashtable.Table[*user.User]
	cost      int
	guests    ident.Generator
}

// New returns an empty directory. Zero options take defaults.
func New(opts Options) (*Directory, error) {
	if opts.CustomerBuckets == 0 {
		opts.CustomerBuckets = DefaultBuckets
	}
	if opts.EmployeeBuckets == 0 {
		opts.EmployeeBuckets = DefaultBuckets
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Guests == nil {
		opts.Guests = ident.NewULID("", nil)
	}
	customers, err := hashtable.New[*user.User](opts.CustomerBuckets)
	if err != nil {
		return nil, fmt.Errorf("auth: customer table: %w", err)
	}
	employees, err := hashtable.New[*user.User](opts.EmployeeBuckets)
	if err != nil {
		return nil, fmt.Errorf("auth: employee table: %w", err)
	}
	return &Directory{customers: customers, employees: employees, cost: opts.BcryptCost, guests: opts.Guests}, nil
}

func (d *Directory) table(kind user.Kind) *hashtable.Table[*user.User] {
	if kind == user.KindEmployee {
		return d.employees
	}
	return d.customers
}

// Register hashes password onto u and stores it in the table for its kind.
func (d *Directory) Register(u *user.User, password string) error {
	hash, err := d.Hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return d.Put(u)
}

// Hash returns the bcrypt hash of password at the directory's cost. It
// touches no table.
func (d *Directory) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", validate.Field("password", "required", "")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Put stores u with its existing password hash. Restores from storage go
// through Put.
func (d *Directory) Put(u *user.User) error {
	if u == nil {
		return validate.Field("user", "required", "")
	}
	tbl := d.table(u.Kind)
	exists, err := tbl.Contains(u)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, u.Email)
	}
	return tbl.Add(u)
}

// LookupCustomer returns the customer registered under email.
func (d *Directory) LookupCustomer(email string) (*user.User, bool) {
	u, ok, _ := d.customers.Get(user.Probe(email))
	return u, ok
}

// LookupEmployee returns the employee registered under email.
func (d *Directory) LookupEmployee(email string) (*user.User, bool) {
	u, ok, _ := d.employees.Get(user.Probe(email))
	return u, ok
}

// Login checks email and password against the table for role. Asking for
// RoleManager succeeds only for an employee with manager access.
func (d *Directory) Login(email, password string, role user.Role) (*user.User, error) {
	u, err := d.Lookup(email, role)
	if err != nil {
		return nil, err
	}
	if err := Verify(u, password, role); err != nil {
		return nil, err
	}
	return u, nil
}

// Lookup returns the account for email in the table that serves role.
// A miss is ErrInvalidCredentials so callers cannot probe for accounts.
func (d *Directory) Lookup(email string, role user.Role) (*user.User, error) {
	var (
		u  *user.User
		ok bool
	)
	switch role {
	case user.RoleCustomer:
		u, ok = d.LookupCustomer(email)
	case user.RoleEmployee, user.RoleManager:
		u, ok = d.LookupEmployee(email)
	default:
		return nil, validate.Field("role", "oneof", "customer employee manager")
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Verify compares password with the stored hash of u and checks that u may
// act as role. It touches no table, so it can run outside any lock.
func Verify(u *user.User, password string, role user.Role) error {
	if u == nil || u.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	if role == user.RoleManager && !u.IsManager() {
		return fmt.Errorf("%w: %s", ErrNotManager, u.Email)
	}
	return nil
}

// Guest returns a fresh guest customer. Guests are not stored.
func (d *Directory) Guest() *user.User {
	return user.NewGuest(d.guests.NextID())
}

// Customers returns every registered customer.
func (d *Directory) Customers() []*user.User { return d.customers.Values() }

// Employees returns every registered employee.
func (d *Directory) Employees() []*user.User { return d.employees.Values() }

// Stats reports table occupancy for metrics.
type Stats struct {
	Customers          int     `json:"customers"`
	Employees          int     `json:"employees"`
	CustomerLoadFactor float64 `json:"customer_load_factor"`
	EmployeeLoadFactor float64 `json:"employee_load_factor"`
}

// Stats returns the current occupancy of both tables.
func (d *Directory) Stats() Stats {
	return Stats{
		Customers:          d.customers.Len(),
		Employees:          d.employees.Len(),
		CustomerLoadFactor: d.customers.LoadFactor(),
		EmployeeLoadFactor: d.employees.LoadFactor(),
	}
}

// Clear drops every account.
func (d *Directory) Clear() {
	d.customers.Clear()
	d.employees.Clear()
}
