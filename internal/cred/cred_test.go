package cred_test

import (
	"testing"

	"github.com/sottovoce/sotto/internal/cred"
)

func TestEnvStore(t *testing.T) {
	s := &cred.EnvStore{Vars: []string{"SOTTO_TEST_KEY_A", "SOTTO_TEST_KEY_B"}}

	if s.HasCredential() {
		t.Fatal("expected no credential with unset variables")
	}

	t.Setenv("SOTTO_TEST_KEY_B", "sk-123")
	if !s.HasCredential() {
		t.Error("expected credential when any variable is set")
	}
}

func TestEnvStore_EmptyVarList(t *testing.T) {
	t.Parallel()
	s := &cred.EnvStore{}
	if s.HasCredential() {
		t.Error("empty store should report no credential")
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()
	if !cred.Static(true).HasCredential() {
		t.Error("Static(true) should have a credential")
	}
	if cred.Static(false).HasCredential() {
		t.Error("Static(false) should not have a credential")
	}
}
