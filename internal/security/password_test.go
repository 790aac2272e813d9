package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPasswordWithCost("abcdef", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "abcdef" {
		t.Fatalf("hash must not equal the plain password")
	}

	if err := CheckPassword(hash, "abcdef"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := CheckPassword(hash, "abcdeg"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPasswordWithCost("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashPasswordWithCost("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatalf("expected different hashes for the same password")
	}
}
