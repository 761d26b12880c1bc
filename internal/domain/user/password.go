package user

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is an abuse limit on raw password input, unrelated to the
// bcrypt 72-byte cap (the pre-hash below removes that cap).
const maxPasswordBytes = 4096

// ErrPasswordTooLong is returned for passwords over the abuse limit.
var ErrPasswordTooLong = errors.New("password too long")

// normalizePassword pre-hashes the password with SHA-256 and base64-encodes
// the digest, yielding a fixed 44-byte ASCII input safe for bcrypt regardless
// of the original length.
func normalizePassword(pw string) string {
	digest := sha256.Sum256([]byte(pw))
	return base64.URLEncoding.EncodeToString(digest[:])
}

// HashPassword hashes a raw password for storage.
func HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("password is required")
	}
	if len(pw) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(normalizePassword(pw)), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt")
	}
	return string(hash), nil
}

// CheckPassword reports whether pw matches the stored hash.
func CheckPassword(pw, hash string) bool {
	if pw == "" || len(pw) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalizePassword(pw))) == nil
}
