// Package jwtkit signs and verifies the session tokens handed out after a
// successful login.
package jwtkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/PaulFidika/authmodule/core"
)

// Signer issues asymmetric JWTs.
type Signer interface {
	// Algorithm returns the JWS algorithm (e.g., RS256).
	Algorithm() string
	// KID returns current key id.
	KID() string
	// Sign creates a signed JWT with provided claims.
	Sign(ctx context.Context, claims jwt.Claims) (token string, err error)
}

// Minimal in-memory RSA signer for bootstrap/dev. Production should load keys
// from the environment.
type RSASigner struct {
	key *rsa.PrivateKey
	kid string
}

func NewRSASigner(bits int, kid string) (*RSASigner, error) {
	if bits == 0 {
		bits = 2048
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &RSASigner{key: k, kid: kid}, nil
}

func (s *RSASigner) Algorithm() string           { return jwt.SigningMethodRS256.Alg() }
func (s *RSASigner) KID() string                 { return s.kid }
func (s *RSASigner) PublicKey() *rsa.PublicKey   { return &s.key.PublicKey }
func (s *RSASigner) PrivateKey() *rsa.PrivateKey { return s.key }

func (s *RSASigner) Sign(_ context.Context, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.key)
}

// NewRSASignerFromPEM constructs an RSASigner from a PEM-encoded private key.
func NewRSASignerFromPEM(kid string, pemBytes []byte) (*RSASigner, error) {
	if len(pemBytes) == 0 {
		return nil, errors.New("empty RSA private key pem")
	}
	blk, _ := pem.Decode(pemBytes)
	if blk == nil {
		return nil, errors.New("failed to decode RSA private key pem")
	}
	var parsed *rsa.PrivateKey
	var err error
	switch blk.Type {
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(blk.Bytes)
	default:
		var key any
		key, err = x509.ParsePKCS8PrivateKey(blk.Bytes)
		if err == nil {
			var ok bool
			if parsed, ok = key.(*rsa.PrivateKey); !ok {
				err = errors.New("pkcs8 key is not RSA private key")
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return &RSASigner{key: parsed, kid: kid}, nil
}

// PrincipalClaims is the session token body.
type PrincipalClaims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	Authorities []string `json:"authorities,omitempty"`
}

// Issuer turns principals into session tokens and back.
type Issuer struct {
	keys   KeySource
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(keys KeySource, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{keys: keys, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for p and returns it with its expiry.
func (i *Issuer) Issue(ctx context.Context, p *core.Principal) (string, time.Time, error) {
	if p == nil {
		return "", time.Time{}, errors.New("jwtkit: principal required")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := PrincipalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username:    p.Username,
		Authorities: p.Authorities,
	}
	tok, err := i.keys.ActiveSigner().Sign(ctx, claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtkit: sign: %w", err)
	}
	return tok, exp, nil
}

// Parse verifies token against the published keys and returns its principal.
func (i *Issuer) Parse(token string) (*core.Principal, error) {
	var claims PrincipalClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		pub, ok := i.keys.PublicKeys()[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return pub, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("jwtkit: parse: %w", err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jwtkit: bad subject %q", claims.Subject)
	}
	return &core.Principal{ID: id, Username: claims.Username, Authorities: claims.Authorities}, nil
}
