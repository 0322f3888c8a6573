// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// HashParams are the argon2id cost parameters encoded into every hash.
type HashParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

var DefaultHashParams = HashParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

func HashPassword(password string) (string, error) {
	return hashWith(password, DefaultHashParams)
}

func hashWith(password string, p HashParams) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// PasswordCheck is the outcome of comparing a candidate password. Rehash is
// set when the stored hash was produced with outdated parameters.
type PasswordCheck struct {
	Match  bool
	Rehash string
}

func VerifyPassword(password, encoded string) (PasswordCheck, error) {
	p, salt, want, err := parseHash(encoded)
	if err != nil {
		return PasswordCheck{}, err
	}

	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return PasswordCheck{}, nil
	}

	out := PasswordCheck{Match: true}
	if p.Memory != DefaultHashParams.Memory ||
		p.Time != DefaultHashParams.Time ||
		p.Threads != DefaultHashParams.Threads ||
		p.KeyLen != DefaultHashParams.KeyLen {
		if fresh, hashErr := HashPassword(password); hashErr == nil {
			out.Rehash = fresh
		}
	}

	return out, nil
}

var (
	decoyOnce sync.Once
	decoyHash string
)

// VerifyPasswordTimingSafe always spends one argon2 derivation, so an unknown
// account costs the same as a wrong password.
func VerifyPasswordTimingSafe(password, encoded string) PasswordCheck {
	if encoded == "" {
		decoyOnce.Do(func() {
			decoyHash, _ = HashPassword("decoy-password-never-matches") //nolint:errcheck // rand failure leaves decoy empty
		})
		if decoyHash != "" {
			_, _ = VerifyPassword(password, decoyHash) //nolint:errcheck // result discarded
		}
		return PasswordCheck{}
	}

	check, err := VerifyPassword(password, encoded)
	if err != nil {
		return PasswordCheck{}
	}
	return check
}

func parseHash(encoded string) (HashParams, []byte, []byte, error) {
	var p HashParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: version %q", ErrMalformedHash, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %w", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %w", ErrMalformedHash, err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %w", ErrMalformedHash, err)
	}

	//nolint:gosec // G115: argon2 key length is always small
	p.KeyLen = uint32(len(key))
	p.SaltLen = len(salt)

	return p, salt, key, nil
}
