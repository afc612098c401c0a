package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the per-user password salt length.
const SaltSize = 32

// PasswordHasher derives password verifiers with argon2id.
type PasswordHasher struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultPasswordHasher returns the production argon2id parameters
// (1 pass, 64 MiB, 4 lanes, 32-byte output).
func DefaultPasswordHasher() PasswordHasher {
	return PasswordHasher{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32}
}

// Verifier derives the stored verifier for password and salt.
func (h PasswordHasher) Verifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, h.Time, h.MemoryKiB, h.Threads, h.KeyLen)
}

// Check recomputes the verifier and compares it in constant time.
func (h PasswordHasher) Check(password, salt, verifier []byte) bool {
	candidate := h.Verifier(password, salt)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
