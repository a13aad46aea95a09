package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, 42)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := ParseToken(secret, token)
	if err != nil {
		t.Fatal(err)
	}
	if uid != 42 {
		t.Fatalf("expected user 42, got %d", uid)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken([]byte("secret-a"), 1)
	if _, err := ParseToken([]byte("secret-b"), token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken([]byte("secret"), "not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
