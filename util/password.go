package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	argonPrefix  = "argon2id$"
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16

	generatedPasswordLen = 8
)

var ErrUnsupportedHash = errors.New("unsupported password hash")

// GenerateSalt returns a random hex encoded salt.
func GenerateSalt() (string, error) {
	b := make([]byte, saltLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPasswordArgon2 derives an argon2id key from password and salt and
// returns it as "argon2id$<base64 key>".
func HashPasswordArgon2(password, salt string) (string, error) {
	if salt == "" {
		return "", errors.New("salt is empty")
	}
	key := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return argonPrefix + base64.RawStdEncoding.EncodeToString(key), nil
}

// VerifyPassword checks password against a stored argon2id hash in constant time.
func VerifyPassword(password, stored, salt string) (bool, error) {
	if !strings.HasPrefix(stored, argonPrefix) {
		return false, ErrUnsupportedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, argonPrefix))
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// GeneratePassword returns a fresh 8 character password for new or reset accounts.
func GeneratePassword() string {
	return uuid.NewString()[:generatedPasswordLen]
}

// NewPasswordHash is GenerateSalt followed by HashPasswordArgon2.
func NewPasswordHash(password string) (hash, salt string, err error) {
	salt, err = GenerateSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = HashPasswordArgon2(password, salt)
	return hash, salt, err
}
