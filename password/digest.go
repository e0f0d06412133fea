package password

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// MessageDigest hashes the raw input once with a fixed algorithm and
// hex-encodes the sum.
//
// Stored values may carry a "{salt}" prefix. The prefix (braces included) is
// appended to the raw input before hashing and kept in front of the digest.
type MessageDigest struct {
	algorithm string
	newHash   func() hash.Hash
}

// NewMessageDigest returns a digest encoder for SHA-256, SHA-512, SHA-1 or MD5.
func NewMessageDigest(algorithm string) (*MessageDigest, error) {
	name, fn, ok := digestAlgorithm(algorithm)
	if !ok {
		return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
	return &MessageDigest{algorithm: name, newHash: fn}, nil
}

func digestAlgorithm(name string) (string, func() hash.Hash, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "")) {
	case "SHA256":
		return AlgSHA256, sha256.New, true
	case "SHA512":
		return AlgSHA512, sha512.New, true
	case "SHA1", "SHA":
		return AlgSHA1, sha1.New, true
	case "MD5":
		return AlgMD5, md5.New, true
	}
	return "", nil, false
}

// Algorithm returns the canonical algorithm name.
func (m *MessageDigest) Algorithm() string { return m.algorithm }

// Encode returns the hex digest of raw.
func (m *MessageDigest) Encode(raw string) (string, error) {
	return m.digest(raw, ""), nil
}

// Matches hashes raw (plus any "{salt}" prefix of encoded) and compares the
// result with encoded in constant time. Hex case is ignored.
func (m *MessageDigest) Matches(raw, encoded string) (bool, error) {
	salt := extractSalt(encoded)
	want := m.digest(raw, salt)
	got := salt + strings.ToLower(encoded[len(salt):])
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1, nil
}

func (m *MessageDigest) digest(raw, salt string) string {
	h := m.newHash()
	h.Write([]byte(raw + salt))
	return salt + hex.EncodeToString(h.Sum(nil))
}

func extractSalt(encoded string) string {
	if !strings.HasPrefix(encoded, "{") {
		return ""
	}
	end := strings.IndexByte(encoded, '}')
	if end < 0 {
		return ""
	}
	return encoded[:end+1]
}
