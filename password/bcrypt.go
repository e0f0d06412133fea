package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxInput is the most bcrypt will hash. Stored values cover
// password ++ salt, so the salt eats into it.
const bcryptMaxInput = 72

// Bcrypt encodes with golang.org/x/crypto/bcrypt. Cost 0 means
// bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Encode(raw string) (string, error) {
	if len(raw) > bcryptMaxInput {
		return "", fmt.Errorf("bcrypt: salted password is %d bytes, limit is %d", len(raw), bcryptMaxInput)
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (Bcrypt) Matches(raw, encoded string) (bool, error) { return VerifyBcrypt(encoded, raw) }

// VerifyBcrypt reports whether raw matches hash. A mismatch is (false, nil);
// an error means hash is not a usable bcrypt value.
func VerifyBcrypt(hash, raw string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	}
	return false, fmt.Errorf("bcrypt: %w", err)
}

// IsBcryptHash reports whether stored carries a modular-crypt bcrypt prefix.
func IsBcryptHash(stored string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}
