package secretbox

import (
	"strings"
	"testing"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := New("unit-test-master-secret")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return codec
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	const secret = "rzp_secret_4242424242"
	sealed, err := codec.Encrypt(secret)
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if sealed == secret {
		t.Fatal("ciphertext equals plaintext")
	}
	if strings.Count(sealed, ":") != 2 {
		t.Fatalf("envelope should have exactly two colons, got %q", sealed)
	}

	got, outcome := codec.Decrypt(sealed)
	if outcome != OutcomeDecrypted {
		t.Fatalf("expected OutcomeDecrypted, got %v", outcome)
	}
	if got != secret {
		t.Fatalf("round trip mismatch: got %q want %q", got, secret)
	}
}

func TestEncryptEmpty(t *testing.T) {
	codec := newTestCodec(t)

	sealed, err := codec.Encrypt("")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if sealed != "" {
		t.Fatalf("expected empty output, got %q", sealed)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	codec := newTestCodec(t)

	a, err := codec.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	b, err := codec.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same value must differ")
	}
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	codec := newTestCodec(t)

	for _, value := range []string{"", "legacy-plain-secret", "one:colon", "a:b:c:d"} {
		got, outcome := codec.Decrypt(value)
		if outcome != OutcomePlaintext {
			t.Fatalf("Decrypt(%q) outcome = %v, want OutcomePlaintext", value, outcome)
		}
		if got != value {
			t.Fatalf("Decrypt(%q) = %q, want input unchanged", value, got)
		}
	}
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	codec := newTestCodec(t)

	sealed, err := codec.Encrypt("rzp_secret_4242424242")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	// Flip a ciphertext nibble.
	tampered := []byte(sealed)
	last := len(tampered) - 1
	if tampered[last] == '0' {
		tampered[last] = '1'
	} else {
		tampered[last] = '0'
	}

	got, outcome := codec.Decrypt(string(tampered))
	if outcome != OutcomeUnreadable {
		t.Fatalf("expected OutcomeUnreadable, got %v", outcome)
	}
	if got != string(tampered) {
		t.Fatal("unreadable values must be returned unchanged")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := New("a-different-master-secret")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	sealed, err := codec.Encrypt("rzp_secret_4242424242")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	if _, outcome := other.Decrypt(sealed); outcome != OutcomeUnreadable {
		t.Fatalf("expected OutcomeUnreadable under wrong key, got %v", outcome)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("   "); err != ErrMissingMasterSecret {
		t.Fatalf("expected ErrMissingMasterSecret, got %v", err)
	}
}
