package cryptox

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

// KeySize is the length in bytes of a file encryption key (AES-256).
const KeySize = 32

const redacted = "[REDACTED]"

// Key is a validated caller-supplied file encryption key. Its formatting
// methods never reveal the key bytes, so a Key can be passed to loggers
// or error messages without leaking it.
type Key struct {
	b [KeySize]byte
}

// ParseKey validates and decodes a caller-supplied key.
//
// Two encodings are accepted, distinguished by length:
//   - 64 hexadecimal characters, decoded to 32 bytes;
//   - exactly 32 printable ASCII characters, used as raw bytes.
//
// Any other input fails with common.ErrValidation. The message never echoes
// the input.
func ParseKey(s string) (Key, error) {
	var k Key

	switch len(s) {
	case 2 * KeySize:
		if _, err := hex.Decode(k.b[:], []byte(s)); err != nil {
			return Key{}, fmt.Errorf("%w: encryption key must be 64 hex characters or 32 printable characters", common.ErrValidation)
		}
		return k, nil
	case KeySize:
		for i := 0; i < len(s); i++ {
			if s[i] < 0x20 || s[i] > 0x7e {
				return Key{}, fmt.Errorf("%w: encryption key must be 64 hex characters or 32 printable characters", common.ErrValidation)
			}
		}
		copy(k.b[:], s)
		return k, nil
	case 0:
		return Key{}, fmt.Errorf("%w: encryption key is required", common.ErrValidation)
	default:
		return Key{}, fmt.Errorf("%w: encryption key must be 64 hex characters or 32 printable characters", common.ErrValidation)
	}
}

// Bytes returns a copy of the key material.
func (k Key) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.b[:])
	return out
}

// Wipe zeroes the key in place.
func (k *Key) Wipe() {
	common.WipeByteArray(k.b[:])
}

func (Key) String() string               { return redacted }
func (Key) GoString() string             { return redacted }
func (Key) LogValue() slog.Value         { return slog.StringValue(redacted) }
func (Key) MarshalText() ([]byte, error) { return []byte(redacted), nil }
