// Package cred abstracts credential presence checks for the session engine.
//
// The engine only ever asks "is a credential available?" before letting a
// recording start; actual secret material flows directly from configuration
// into the provider constructors and never through this package.
package cred

import "os"

// Store reports whether a usable backend credential is available.
type Store interface {
	HasCredential() bool
}

// EnvStore checks a list of environment variables, any one of which being
// non-empty satisfies the check.
type EnvStore struct {
	// Vars are the environment variable names to probe.
	Vars []string
}

var _ Store = (*EnvStore)(nil)

// HasCredential implements Store.
func (s *EnvStore) HasCredential() bool {
	for _, v := range s.Vars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// Static is a Store with a fixed answer. Local backends (whisper.cpp, Ollama)
// need no credential, and tests use it to script the no-credential guard.
type Static bool

var _ Store = Static(false)

// HasCredential implements Store.
func (s Static) HasCredential() bool {
	return bool(s)
}
