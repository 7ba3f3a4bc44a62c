package auth

import "testing"

func TestHashPassword_SaltedDigests(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	second, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if first == second {
		t.Fatal("expected different digests for repeated hashing of the same input")
	}
	if first == "pw123" || second == "pw123" {
		t.Fatal("digest must not equal the plaintext")
	}
}

func TestCheckPasswordHash(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if !CheckPasswordHash(hash, "pw123") {
		t.Fatal("expected correct password to verify")
	}
	if CheckPasswordHash(hash, "pw124") {
		t.Fatal("expected wrong password to fail")
	}
}
