// Package secretstore implements the "_secret suffix is a contract" rule
// from spec §9: any configuration field whose name ends in "_secret" is
// redacted wherever it is echoed, and may additionally be a reference into
// the OS keychain rather than a literal value.
//
// A field value of the form "keyring:<account>" is resolved against the OS
// keychain (via 99designs/keyring, the same library the teacher uses for
// auth tokens and the stored database DSN) at connection time. Anything
// else is used as the literal secret. Either way, the value that reaches a
// `config` or `log` echo is always the sentinel, never the resolved
// content.
package secretstore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Sentinel replaces a redacted field's value wherever configuration is
// echoed (spec §4.4, §9).
const Sentinel = "***"

// ServiceName namespaces this engine's entries in the OS keychain.
const ServiceName = "afpsql"

const keyringPrefix = "keyring:"

// Store lazily opens the OS keyring on first use and memoizes the handle.
type Store struct {
	mu   sync.Mutex
	ring keyring.Keyring
	err  error
}

var defaultStore = &Store{}

// Resolve returns the literal secret value for raw, resolving a
// "keyring:<account>" reference against the OS keychain and passing any
// other value through unchanged.
func Resolve(raw string) (string, error) {
	return defaultStore.Resolve(raw)
}

// Resolve is the Store method backing the package-level Resolve.
func (s *Store) Resolve(raw string) (string, error) {
	account, ok := strings.CutPrefix(raw, keyringPrefix)
	if !ok {
		return raw, nil
	}
	ring, err := s.open()
	if err != nil {
		return "", fmt.Errorf("secretstore: keyring unavailable: %w", err)
	}
	item, err := ring.Get(account)
	if err != nil {
		return "", fmt.Errorf("secretstore: keyring lookup for %q failed: %w", account, err)
	}
	return string(item.Data), nil
}

func (s *Store) open() (keyring.Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ring != nil {
		return s.ring, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
	})
	if err != nil {
		s.err = err
		return nil, err
	}
	s.ring = ring
	return ring, nil
}

// IsSecretField reports whether a JSON field name follows the "_secret"
// suffix contract.
func IsSecretField(name string) bool {
	return strings.HasSuffix(name, "_secret")
}
