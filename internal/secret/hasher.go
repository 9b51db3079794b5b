// Package secret implements one-way hashing of credential secrets with
// argon2id. Digests are salted and encoded in the standard PHC string format,
// so two hashes of the same plaintext never compare equal; verification
// re-derives the key under the stored parameters and compares in constant
// time.
package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedDigest is returned when a stored digest cannot be parsed. It
// is a structural error, distinct from an ordinary verification mismatch
// (which is not an error at all, just a false result).
var ErrMalformedDigest = errors.New("malformed secret digest")

// Argon2id parameters. 64 MiB memory, 1 pass, 4 lanes per the argon2
// library's recommended defaults for interactive use.
const (
	memory      = 64 * 1024
	iterations  = 1
	parallelism = 4
	saltLen     = 16
	keyLen      = 32
)

// Hash derives an argon2id digest from plaintext with a fresh random salt.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, iterations, memory, parallelism, keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the stored digest. A mismatch
// returns (false, nil); only a digest that cannot be parsed returns an
// error.
func Verify(plaintext, digest string) (bool, error) {
	params, salt, key, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	derived := argon2.IDKey([]byte(plaintext), salt, params.iterations, params.memory, params.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1, nil
}

// CheckDigest validates that a stored digest is structurally sound without
// performing any key derivation. Used for startup integrity checks.
func CheckDigest(digest string) error {
	_, _, _, err := decodeDigest(digest)
	return err
}

type digestParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodeDigest(digest string) (digestParams, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return digestParams{}, nil, nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return digestParams{}, nil, nil, ErrMalformedDigest
	}

	var p digestParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return digestParams{}, nil, nil, ErrMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return digestParams{}, nil, nil, ErrMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return digestParams{}, nil, nil, ErrMalformedDigest
	}

	return p, salt, key, nil
}

// Generate returns a new URL-safe random secret of n bytes of entropy,
// prefixed so keys are recognizable in configuration and logs-scrubbing
// tooling.
func Generate(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return "ck_" + base64.RawURLEncoding.EncodeToString(raw), nil
}
