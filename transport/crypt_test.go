package transport

import "testing"

func TestSelectBlockCryptKnownNames(t *testing.T) {
	key := DeriveKey("a pre-shared secret")
	for _, name := range []string{"aes", "aes-128", "none", "xor", "salsa20"} {
		block, effective := SelectBlockCrypt(name, key)
		if effective != name {
			t.Fatalf("SelectBlockCrypt(%q): effective name = %q", name, effective)
		}
		if block == nil {
			t.Fatalf("SelectBlockCrypt(%q): expected non-nil block", name)
		}
	}
}

func TestSelectBlockCryptUnknownFallsBackToAES(t *testing.T) {
	key := DeriveKey("a pre-shared secret")
	_, effective := SelectBlockCrypt("not-a-real-cipher", key)
	if effective != "aes" {
		t.Fatalf("expected fallback to aes, got %q", effective)
	}
}

func TestDeriveKeyIsDeterministicAndSized(t *testing.T) {
	k1 := DeriveKey("secret")
	k2 := DeriveKey("secret")
	if len(k1) != 32 {
		t.Fatalf("expected a 32-byte derived key, got %d", len(k1))
	}
	if string(k1) != string(k2) {
		t.Fatalf("DeriveKey not deterministic for the same secret")
	}
}
