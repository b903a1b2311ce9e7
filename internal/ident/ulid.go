package ident

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const instanceIDFile = "instance_id"

// ULID issues time-ordered ULIDs, optionally prefixed. Ids generated within
// the same millisecond stay lexicographically ordered.
type ULID struct {
	prefix string
	now    func() time.Time
}

// NewULID returns a ULID generator. now defaults to time.Now.
func NewULID(prefix string, now func() time.Time) *ULID {
	if now == nil {
		now = time.Now
	}
	return &ULID{prefix: prefix, now: now}
}

// NextID returns a fresh prefixed ULID. It panics only if the entropy
// source fails, which crypto/rand does not do in practice.
func (u *ULID) NextID() string {
	id, err := generate(u.now())
	if err != nil {
		panic(fmt.Sprintf("ident: generate ulid: %v", err))
	}
	return u.prefix + id
}

// Observe is a no-op: ULIDs do not depend on previously issued ids.
func (u *ULID) Observe(string) {}

// monoEntropy is shared by every generator so ordering holds across them.
var (
	monoMu      sync.Mutex
	monoEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

func generate(t time.Time) (string, error) {
	monoMu.Lock()
	defer monoMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), monoEntropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Instance returns the stable ULID of this bakery process, stored in
// dataDir/instance_id. A new id is generated and written on first start.
func Instance(dataDir string) (string, error) {
	if dataDir == "" {
		return "", errors.New("ident: dataDir must not be empty")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return "", fmt.Errorf("ident: create data dir: %w", err)
	}
	path := filepath.Join(dataDir, instanceIDFile)

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, err := ulid.ParseStrict(id); err != nil {
			return "", fmt.Errorf("ident: persisted instance id %q is invalid: %w", id, err)
		}
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("ident: read instance id: %w", err)
	}

	id, err := generate(time.Now())
	if err != nil {
		return "", fmt.Errorf("ident: generate instance id: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o640); err != nil {
		return "", fmt.Errorf("ident: persist instance id: %w", err)
	}
	return id, nil
}
