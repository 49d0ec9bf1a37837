package gateway

import (
	"strings"
	"testing"
)

func TestVerifySignatureAccepts(t *testing.T) {
	const (
		orderID   = "order_Nxq7sLZkB2V9ab"
		paymentID = "pay_Nxq8tMAlC3W0cd"
		secret    = "rzp_secret_4242424242"
	)

	sig := Sign(orderID, paymentID, secret)
	if err := VerifySignature(orderID, paymentID, sig, secret); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureRejectsBitFlip(t *testing.T) {
	const (
		orderID   = "order_Nxq7sLZkB2V9ab"
		paymentID = "pay_Nxq8tMAlC3W0cd"
		secret    = "rzp_secret_4242424242"
	)

	sig := Sign(orderID, paymentID, secret)
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	if err := VerifySignature(orderID, paymentID, string(flipped), secret); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret-a")
	if err := VerifySignature("order_1", "pay_1", sig, "secret-b"); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsSwappedIDs(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret-a")
	if err := VerifySignature("pay_1", "order_1", sig, "secret-a"); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestSignIsLowercaseHex(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret-a")
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Fatal("signature must be lowercase hex")
	}
}
