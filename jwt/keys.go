package jwtkit

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// KeySource provides the active signer and public keys for JWKS.
type KeySource interface {
	ActiveSigner() Signer
	PublicKeys() map[string]*rsa.PublicKey
}

// StaticKeySource is a simple in-memory implementation.
type StaticKeySource struct {
	Active Signer
	Pubs   map[string]*rsa.PublicKey
}

func (s StaticKeySource) ActiveSigner() Signer                  { return s.Active }
func (s StaticKeySource) PublicKeys() map[string]*rsa.PublicKey { return s.Pubs }

// NewStaticKeySource publishes the signer's own public key only.
func NewStaticKeySource(s *RSASigner) StaticKeySource {
	return StaticKeySource{Active: s, Pubs: map[string]*rsa.PublicKey{s.KID(): s.PublicKey()}}
}

const (
	// DefaultKeysDir is where development keys are kept between restarts.
	DefaultKeysDir = ".runtime/authmodule"
	privateKeyFile = "private.pem"
	keyIDFile      = "kid"
)

// LoadKeySource resolves signing keys in order:
//  1. ACTIVE_KEY_ID and ACTIVE_PRIVATE_KEY_PEM from the environment;
//  2. keys persisted in dir;
//  3. a freshly generated key, persisted to dir (refused when production is
//     detected through ENV/APP_ENV).
func LoadKeySource(dir, kid string, log logrus.FieldLogger) (KeySource, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dir == "" {
		dir = DefaultKeysDir
	}

	envKID := strings.TrimSpace(os.Getenv("ACTIVE_KEY_ID"))
	envPEM := strings.TrimSpace(os.Getenv("ACTIVE_PRIVATE_KEY_PEM"))
	switch {
	case envKID != "" && envPEM != "":
		s, err := NewRSASignerFromPEM(envKID, []byte(envPEM))
		if err != nil {
			return nil, fmt.Errorf("parse ACTIVE_PRIVATE_KEY_PEM: %w", err)
		}
		return NewStaticKeySource(s), nil
	case envKID != "" || envPEM != "":
		return nil, fmt.Errorf("ACTIVE_KEY_ID and ACTIVE_PRIVATE_KEY_PEM must be set together")
	}

	if s, ok := loadKeysFromDisk(dir); ok {
		return NewStaticKeySource(s), nil
	}
	if isProdEnv() {
		return nil, fmt.Errorf("no JWT keys found and auto-generation is disabled in production; set ACTIVE_KEY_ID/ACTIVE_PRIVATE_KEY_PEM")
	}

	if kid == "" {
		kid = fmt.Sprintf("dev-%d", time.Now().Unix())
	}
	s, err := NewRSASigner(2048, kid)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	if err := persistKeysToDisk(dir, s); err != nil {
		log.WithError(err).Warn("failed to persist dev signing key")
	}
	log.WithField("kid", kid).Info("Generated development signing key")
	return NewStaticKeySource(s), nil
}

func isProdEnv() bool {
	env := strings.TrimSpace(os.Getenv("ENV"))
	if env == "" {
		env = strings.TrimSpace(os.Getenv("APP_ENV"))
	}
	env = strings.ToLower(env)
	return env == "production" || env == "prod"
}

func loadKeysFromDisk(dir string) (*RSASigner, bool) {
	pemBytes, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, false
	}
	kid := "dev"
	if b, err := os.ReadFile(filepath.Join(dir, keyIDFile)); err == nil {
		if k := strings.TrimSpace(string(b)); k != "" {
			kid = k
		}
	}
	s, err := NewRSASignerFromPEM(kid, pemBytes)
	if err != nil {
		return nil, false
	}
	return s, true
}

func persistKeysToDisk(dir string, s *RSASigner) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create keys directory: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(s.PrivateKey()),
	})
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privPEM, 0600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyIDFile), []byte(s.KID()), 0600); err != nil {
		return fmt.Errorf("write key ID: %w", err)
	}
	return nil
}
