package domain

// Algorithm names the AEAD cipher used to encrypt a secret value with its data key.
//
// Both algorithms use 256-bit keys, 12-byte nonces and 16-byte authentication tags.
// Data keys are always wrapped with AES-256-GCM regardless of this setting.
type Algorithm string

const (
	// AESGCM is AES-256-GCM, the default for hardware with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305, preferred on hosts without AES acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Key and KDF sizing shared by the envelope engine and master key loading.
const (
	// KeySize is the size in bytes of master keys, KEKs and DEKs.
	KeySize = 32

	// SaltSize is the size in bytes of the per-secret key derivation salt.
	SaltSize = 16

	// MinKDFIterations is the lowest accepted PBKDF2 iteration count.
	MinKDFIterations = 100_000

	// DefaultKDFIterations is used when no iteration count is configured.
	DefaultKDFIterations = 210_000
)

// ParseAlgorithm converts a configuration string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
