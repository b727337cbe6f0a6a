package domain

import (
	"github.com/google/uuid"
)

// RevealedSecret is the outcome of a read. Value holds the plaintext only when Decrypted
// is true; otherwise it is RedactedValue.
type RevealedSecret struct {
	Item      *VaultItem
	Value     []byte
	Decrypted bool
	Grant     Grant
}

// CredentialTestResult reports whether a stored value can still be decrypted.
type CredentialTestResult struct {
	VaultID   uuid.UUID `json:"vault_id"`
	Success   bool      `json:"success"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

// VerificationReport summarizes an access-log signature sweep.
type VerificationReport struct {
	Total    int64       `json:"total"`
	Valid    int64       `json:"valid"`
	Unsigned int64       `json:"unsigned"`
	Invalid  []uuid.UUID `json:"invalid"`
}

// Passed reports whether no row failed verification.
func (r *VerificationReport) Passed() bool {
	return len(r.Invalid) == 0
}
