package identity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

// Digest converts a plaintext password into the stored hash form. Digests
// must be deterministic so stored and supplied hashes compare with plain
// string equality.
type Digest func(password string) string

// MD5Digest is the legacy scheme: base64 of the MD5 sum. Kept for
// compatibility with documents written by older deployments.
func MD5Digest(password string) string {
	sum := md5.Sum([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// NewPBKDF2Digest returns a digest using PBKDF2-SHA256 with a fixed salt and
// iteration count. The salt is deployment-wide rather than per-user because
// resolver lookups compare digests by equality.
func NewPBKDF2Digest(salt string, iterations int) Digest {
	return func(password string) string {
		key := pbkdf2.Key([]byte(password), []byte(salt), iterations, 32, sha256.New)
		return base64.StdEncoding.EncodeToString(key)
	}
}
