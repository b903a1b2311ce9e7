// Package ident hands out record identifiers.
//
// Records never pick their own id. A Generator is owned by the application
// context and passed to every record constructor, so id assignment is a
// single serialised critical section that tests can replace.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrInvalidPrefix is returned when a Sequence is built with an empty prefix.
	ErrInvalidPrefix = errors.New("ident: prefix must not be empty")

	// ErrUnknownStrategy is returned by New for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("ident: unknown strategy")
)

// Strategy names accepted by New.
const (
	StrategySequence = "sequence"
	StrategyULID     = "ulid"
)

// Generator issues unique identifiers.
type Generator interface {
	NextID() string
}

// Observer is implemented by generators that must skip ids restored from
// storage.
type Observer interface {
	Observe(id string)
}

// New returns a Generator for strategy. start is only used by sequences.
func New(strategy, prefix string, start int) (Generator, error) {
	switch strategy {
	case StrategySequence, "":
		s, err := NewSequence(prefix, start)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyULID:
		return NewULID(prefix, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// Sequence issues prefix+counter ids such as "O1000", "O1001", ...
// All methods are safe for concurrent use.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequence returns a Sequence whose first id is prefix+start.
func NewSequence(prefix string, start int) (*Sequence, error) {
	if prefix == "" {
		return nil, ErrInvalidPrefix
	}
	return &Sequence{prefix: prefix, next: start}, nil
}

// NextID returns the next id and advances the counter.
func (s *Sequence) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.prefix + strconv.Itoa(s.next)
	s.next++
	return id
}

// Observe raises the counter past id when id carries this sequence's
// prefix and a larger number. Ids restored from storage go through Observe
// so freshly issued ids never collide with them. Foreign ids are ignored.
func (s *Sequence) Observe(id string) {
	n, ok := s.number(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= s.next {
		s.next = n + 1
	}
}

// Peek returns the id NextID would issue, without consuming it.
func (s *Sequence) Peek() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefix + strconv.Itoa(s.next)
}

func (s *Sequence) number(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, s.prefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Sequence) String() string {
	return fmt.Sprintf("sequence(%s)", s.Peek())
}
