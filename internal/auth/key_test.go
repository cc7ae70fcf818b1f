package auth

import "testing"

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashKey("pl_live_secret")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}

	ok, err := VerifyKey("pl_live_secret", encoded)
	if err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	if !ok {
		t.Fatal("correct key should verify")
	}

	ok, err = VerifyKey("pl_live_wrong", encoded)
	if err != nil {
		t.Fatalf("VerifyKey wrong key: %v", err)
	}
	if ok {
		t.Fatal("wrong key should not verify")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := HashKey("same-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	b, err := HashKey("same-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same key should differ")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "no-separator", "!!$!!", "YWJj$not-base64!"} {
		if _, err := VerifyKey("key", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}
}
