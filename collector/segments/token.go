package segments

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	tokenIterationCount = 10000
	tokenKeyLength      = 32
	tokenSaltLength     = 16
)

// TokenVerifier checks a presented bearer token against stored credentials.
type TokenVerifier interface {
	Verify(token string) bool
}

// PBKDF2TokenVerifier verifies tokens against a PBKDF2-SHA256 hash. The
// collector never stores the token itself, only hash and salt.
type PBKDF2TokenVerifier struct {
	hash []byte
	salt []byte
}

// NewPBKDF2TokenVerifier creates a verifier from hex-encoded hash and salt as
// produced by HashToken.
func NewPBKDF2TokenVerifier(hashHex, saltHex string) (*PBKDF2TokenVerifier, error) {
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("invalid token hash: %w", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("invalid token salt: %w", err)
	}
	if len(hash) != tokenKeyLength || len(salt) == 0 {
		return nil, fmt.Errorf("token hash or salt has wrong length")
	}
	return &PBKDF2TokenVerifier{hash: hash, salt: salt}, nil
}

// Verify derives a hash from the presented token and compares it in constant
// time.
func (v *PBKDF2TokenVerifier) Verify(token string) bool {
	derived := pbkdf2.Key([]byte(token), v.salt, tokenIterationCount, tokenKeyLength, sha256.New)
	return subtle.ConstantTimeCompare(derived, v.hash) == 1
}

// HashToken produces the hex-encoded hash and salt to store in the collector
// configuration for a given token.
func HashToken(token string) (hashHex, saltHex string, err error) {
	salt := make([]byte, tokenSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	hash := pbkdf2.Key([]byte(token), salt, tokenIterationCount, tokenKeyLength, sha256.New)
	return hex.EncodeToString(hash), hex.EncodeToString(salt), nil
}
