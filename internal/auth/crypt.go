package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// CryptParams tunes the argon2id cost.
type CryptParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

var DefaultCryptParams = CryptParams{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// derive hashes a password with a salt taken from HMAC(pepper, password), so
// equal inputs always produce equal output.
func derive(pepper []byte, params CryptParams, password string) string {
	mac := hmac.New(sha256.New, pepper)
	_, _ = mac.Write([]byte(password))
	salt := mac.Sum(nil)[:16]

	key := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Time,
		params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}
