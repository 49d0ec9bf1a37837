package format

import (
	"fmt"
	"time"
)

// InvoiceNumber renders the human-readable invoice number
// "INV-<6-digit time fragment>-<4-digit zero-padded sequence>".
// The time fragment is the issue instant's unix time modulo 1e6; the
// per-tenant sequence is what guarantees uniqueness.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func InvoiceNumber(issuedAt time.Time, seq int64) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return fmt.Sprintf("INV-%06d-%04d", issuedAt.Unix()%1_000_000, seq), nil
}
