package security

import (
	"crypto/sha512"   // HMAC-SHA512 core for PBKDF2
	"crypto/subtle"   // Constant-time comparison
	"encoding/base64" // Hash encoding
	"fmt"             // Hex formatting for fingerprints
	"strings"         // Lower-casing the login
	"time"            // Creation timestamp

	"github.com/cespare/xxhash/v2" // Fast non-cryptographic hash
	"golang.org/x/crypto/pbkdf2"   // Password-based key derivation
)

const (
	saltNamespace  = "Kudo.Security.Cryptography:" // Prefix shared by every account salt
	saltTimeLayout = "2006-01-02 15:04:05"         // Creation instant, second precision
	hashIterations = 4096                          // PBKDF2 rounds
	hashKeyLength  = 72                            // Derived key size in bytes
)

// accountSalt ties the salt to the account identity and its creation instant
func accountSalt(login string, createdAt time.Time) []byte {
	return []byte(saltNamespace + strings.ToLower(login) + "_at_" + createdAt.UTC().Format(saltTimeLayout))
}

// DerivePasswordHash returns the base64 PBKDF2-HMAC-SHA512 hash of password for
// the account identified by login and createdAt. Identical inputs always produce
// identical output.
func DerivePasswordHash(password, login string, createdAt time.Time) string {
	key := pbkdf2.Key([]byte(password), accountSalt(login, createdAt), hashIterations, hashKeyLength, sha512.New)
	return base64.StdEncoding.EncodeToString(key)
}

// VerifyPassword re-derives the hash and compares it with stored in constant time
func VerifyPassword(stored, password, login string, createdAt time.Time) bool {
	derived := DerivePasswordHash(password, login, createdAt)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(derived)) == 1
}

// Fingerprint is a fast content hash for de-duplication keys and checksums.
// It is not a password hash.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data)) // Fixed width, 16 hex chars
}
