package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestNewPKCE(t *testing.T) {
	pkce, err := NewPKCE()
	if err != nil {
		t.Fatalf("NewPKCE() error = %v", err)
	}
	if len(pkce.Verifier) != CodeVerifierLength {
		t.Errorf("Verifier length = %d, want %d", len(pkce.Verifier), CodeVerifierLength)
	}
	if len(pkce.State) != StateLength {
		t.Errorf("State length = %d, want %d", len(pkce.State), StateLength)
	}

	sum := sha256.Sum256([]byte(pkce.Verifier))
	if want := base64.RawURLEncoding.EncodeToString(sum[:]); pkce.Challenge != want {
		t.Errorf("Challenge = %q, want %q", pkce.Challenge, want)
	}

	other, err := NewPKCE()
	if err != nil {
		t.Fatal(err)
	}
	if pkce.Verifier == other.Verifier || pkce.State == other.State {
		t.Error("two PKCE instances share values")
	}
}

func TestRandomString(t *testing.T) {
	for _, n := range []int{16, 43, 64, 128} {
		s, err := randomString(n)
		if err != nil {
			t.Fatalf("randomString(%d) error = %v", n, err)
		}
		if len(s) != n {
			t.Errorf("randomString(%d) length = %d", n, len(s))
		}
		for _, c := range s {
			ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
			if !ok {
				t.Errorf("invalid character %q", c)
			}
		}
	}
}

func TestChallengeForIsStable(t *testing.T) {
	if challengeFor("abc") != challengeFor("abc") {
		t.Error("challengeFor is not deterministic")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(challengeFor("abc"))
	if err != nil || len(decoded) != 32 {
		t.Errorf("challenge decode = %d bytes, err %v", len(decoded), err)
	}
}
