package secret

import (
	"strings"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	digest, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$") {
		t.Errorf("expected PHC argon2id digest, got %q", digest)
	}

	ok, err := Verify("correct horse battery staple", digest)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("expected matching plaintext to verify")
	}

	ok, err = Verify("wrong secret", digest)
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Error("expected non-matching plaintext to fail verification")
	}
}

func TestHashIsSalted(t *testing.T) {
	d1, err := Hash("same input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d2, err := Hash("same input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if d1 == d2 {
		t.Error("two hashes of the same plaintext must differ")
	}

	for _, d := range []string{d1, d2} {
		ok, err := Verify("same input", d)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if !ok {
			t.Errorf("digest %q did not verify its own plaintext", d)
		}
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	cases := []string{
		"",
		"not a digest",
		"$argon2id$",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
	}
	for _, digest := range cases {
		if _, err := Verify("anything", digest); err != ErrMalformedDigest {
			t.Errorf("Verify(%q): expected ErrMalformedDigest, got %v", digest, err)
		}
		if err := CheckDigest(digest); err != ErrMalformedDigest {
			t.Errorf("CheckDigest(%q): expected ErrMalformedDigest, got %v", digest, err)
		}
	}
}

func TestCheckDigestAcceptsValid(t *testing.T) {
	digest, err := Hash("x")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := CheckDigest(digest); err != nil {
		t.Errorf("CheckDigest on fresh digest: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	s1, err := Generate(32)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s2, err := Generate(32)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s1 == s2 {
		t.Error("two generated secrets must differ")
	}
	if !strings.HasPrefix(s1, "ck_") {
		t.Errorf("expected ck_ prefix, got %q", s1)
	}
}
