package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Supported encoder names.
const (
	AlgSHA256   = "SHA-256"
	AlgSHA512   = "SHA-512"
	AlgSHA1     = "SHA-1"
	AlgMD5      = "MD5"
	AlgArgon2id = "argon2id"
	AlgBcrypt   = "bcrypt"
)

// Encoder turns raw passwords into stored values and checks them back.
type Encoder interface {
	Encode(raw string) (string, error)
	// Matches reports whether raw hashes to encoded. An error means encoded
	// could not be parsed, not that the password is wrong.
	Matches(raw, encoded string) (bool, error)
}

// NewEncoder builds the encoder registered under name. Digest names are
// matched case-insensitively ("sha256" == "SHA-256"). Digest encoders come
// wrapped in Delegating, so rows already rehashed with argon2id or bcrypt
// keep verifying.
func NewEncoder(name string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha-256", "sha256":
		md, err := NewMessageDigest(AlgSHA256)
		if err != nil {
			return nil, err
		}
		return Delegating{Default: md}, nil
	case AlgArgon2id:
		return Argon2id{}, nil
	case AlgBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	}
	if md, err := NewMessageDigest(name); err == nil {
		return Delegating{Default: md}, nil
	}
	return nil, fmt.Errorf("unknown password encoder %q", name)
}

// Argon2id encodes with HashArgon2id.
type Argon2id struct{}

func (Argon2id) Encode(raw string) (string, error)         { return HashArgon2id(raw) }
func (Argon2id) Matches(raw, encoded string) (bool, error) { return VerifyArgon2id(encoded, raw) }

// Delegating picks argon2id or bcrypt from the stored value's prefix and
// falls back to Default (a digest encoder) otherwise. It lets a user table
// migrate away from plain digests one row at a time.
type Delegating struct {
	Default Encoder
}

func (d Delegating) Encode(raw string) (string, error) {
	return d.Default.Encode(raw)
}

func (d Delegating) Matches(raw, encoded string) (bool, error) {
	switch {
	case IsArgon2idHash(encoded):
		return Argon2id{}.Matches(raw, encoded)
	case IsBcryptHash(encoded):
		return Bcrypt{}.Matches(raw, encoded)
	}
	return d.Default.Matches(raw, encoded)
}
