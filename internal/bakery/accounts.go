package bakery

import (
	"github.com/snehjoshi/bakery/internal/auth"
	"github.com/snehjoshi/bakery/internal/user"
)

// RegisterCustomer creates a customer account.
func (s *Service) RegisterCustomer(d user.Details, c user.Contact, password string) (*user.User, error) {
	u, err := user.NewCustomer(d, c)
	if err != nil {
		return nil, err
	}
	return s.register(u, password)
}

// RegisterEmployee creates an employee account; manager grants manager access.
func (s *Service) RegisterEmployee(d user.Details, manager bool, password string) (*user.User, error) {
	u, err := user.NewEmployee(d, manager)
	if err != nil {
		return nil, err
	}
	return s.register(u, password)
}

func (s *Service) register(u *user.User, password string) (*user.User, error) {
	// bcrypt runs outside mu; only the table insert is serialised.
	hash, err := s.directory().Hash(password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dir.Put(u); err != nil {
		return nil, err
	}
	s.recordTables()
	s.log.Info("account registered", "email", u.Email, "role", string(u.Role()))
	return copyUser(u), nil
}

// directory returns the current account directory. Restore replaces it.
func (s *Service) directory() *auth.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Login authenticates email and password for role.
func (s *Service) Login(email, password string, role user.Role) (*user.User, error) {
	s.mu.Lock()
	u, err := s.dir.Lookup(email, role)
	var snapshot user.User
	if err == nil {
		snapshot = *u
	}
	s.mu.Unlock()

	if err == nil {
		err = auth.Verify(&snapshot, password, role)
	}
	s.metrics.LoginAttempt(string(role), err == nil)
	if err != nil {
		s.log.Debug("login failed", "email", email, "role", string(role), "err", err)
		return nil, err
	}
	return copyUser(&snapshot), nil
}

// Guest starts a guest session. The guest may place orders until the
// process restarts; guest accounts are never persisted.
func (s *Service) Guest() *user.User {
	g := s.directory().Guest()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[g.Email] = g
	return copyUser(g)
}

// Customer returns the registered or guest account for email.
func (s *Service) Customer(email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.customer(email)
	if u == nil {
		return nil, ErrUnknownCustomer
	}
	return copyUser(u), nil
}
