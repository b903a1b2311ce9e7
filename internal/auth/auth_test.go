package auth_test

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/snehjoshi/bakery/internal/auth"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/user"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

func newDirectory(t *testing.T) *auth.Directory {
	t.Helper()
	guests, _ := ident.NewSequence("G", 1)
	d, err := auth.New(auth.Options{BcryptCost: bcrypt.MinCost, Guests: guests})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func register(t *testing.T, d *auth.Directory, u *user.User, password string) {
	t.Helper()
	if err := d.Register(u, password); err != nil {
		t.Fatalf("Register(%s): %v", u.Email, err)
	}
}

func mustCustomer(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := user.NewCustomer(user.Details{Email: email}, user.Contact{Address: "1 Elm St"})
	if err != nil {
		t.Fatalf("NewCustomer: %v", err)
	}
	return u
}

func mustEmployee(t *testing.T, email string, manager bool) *user.User {
	t.Helper()
	u, err := user.NewEmployee(user.Details{Email: email}, manager)
	if err != nil {
		t.Fatalf("NewEmployee: %v", err)
	}
	return u
}

// ─── Register ────────────────────────────────────────────────────────────────

func TestRegister_HashesPassword(t *testing.T) {
	d := newDirectory(t)
	u := mustCustomer(t, "a@x.com")
	register(t, d, u, "s3cret")

	if u.PasswordHash == "" || strings.Contains(u.PasswordHash, "s3cret") {
		t.Fatalf("PasswordHash = %q", u.PasswordHash)
	}
	got, ok := d.LookupCustomer("A@X.com")
	if !ok || got != u {
		t.Fatalf("LookupCustomer = %v, %v", got, ok)
	}
	if _, ok := d.LookupEmployee("a@x.com"); ok {
		t.Fatal("customers and employees live in separate tables")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	d := newDirectory(t)
	register(t, d, mustCustomer(t, "a@x.com"), "pw")
	if err := d.Register(mustCustomer(t, "A@x.com"), "pw2"); !errors.Is(err, auth.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
	// The same email may hold one account of each kind.
	register(t, d, mustEmployee(t, "a@x.com", false), "pw")
	if st := d.Stats(); st.Customers != 1 || st.Employees != 1 {
		t.Fatalf("Stats = %+v", st)
	}
}

// ─── Login ───────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	d := newDirectory(t)
	register(t, d, mustCustomer(t, "cust@x.com"), "cpw")
	register(t, d, mustEmployee(t, "emp@x.com", false), "epw")
	register(t, d, mustEmployee(t, "mgr@x.com", true), "mpw")

	tests := []struct {
		name     string
		email    string
		password string
		role     user.Role
		wantErr  error
	}{
		{"customer ok", "cust@x.com", "cpw", user.RoleCustomer, nil},
		{"customer wrong password", "cust@x.com", "nope", user.RoleCustomer, auth.ErrInvalidCredentials},
		{"unknown email", "ghost@x.com", "cpw", user.RoleCustomer, auth.ErrInvalidCredentials},
		{"customer is not an employee", "cust@x.com", "cpw", user.RoleEmployee, auth.ErrInvalidCredentials},
		{"employee ok", "EMP@x.com", "epw", user.RoleEmployee, nil},
		{"employee wants manager", "emp@x.com", "epw", user.RoleManager, auth.ErrNotManager},
		{"manager ok", "mgr@x.com", "mpw", user.RoleManager, nil},
		{"manager as employee", "mgr@x.com", "mpw", user.RoleEmployee, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := d.Login(tc.email, tc.password, tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil || u == nil {
				t.Fatalf("Login: %v", err)
			}
		})
	}
}

func TestPut_KeepsHash(t *testing.T) {
	d := newDirectory(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	u := mustEmployee(t, "e@x.com", false)
	u.PasswordHash = string(hash)
	if err := d.Put(u); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := d.Login("e@x.com", "pw", user.RoleEmployee); err != nil {
		t.Fatalf("Login after Put: %v", err)
	}
}

// ─── Guest / config ──────────────────────────────────────────────────────────

func TestGuest(t *testing.T) {
	d := newDirectory(t)
	a, b := d.Guest(), d.Guest()
	if !a.Customer.Guest || a.Email == b.Email {
		t.Fatalf("guests = %s, %s", a.Email, b.Email)
	}
	if len(d.Customers()) != 0 {
		t.Fatal("guests must not be stored")
	}
}

func TestNew_BadBuckets(t *testing.T) {
	if _, err := auth.New(auth.Options{CustomerBuckets: -1}); err == nil {
		t.Fatal("expected error for a negative bucket count")
	}
}

func TestVerify_NoHash(t *testing.T) {
	u := mustCustomer(t, "a@x.com")
	if err := auth.Verify(u, "", user.RoleCustomer); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if err := auth.Verify(nil, "pw", user.RoleCustomer); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("nil user: want ErrInvalidCredentials, got %v", err)
	}
}
