package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/identity"
	"github.com/PaulFidika/authmodule/password"
)

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func aliceStore() *identity.MemoryStore {
	return identity.NewMemoryStore(core.UserEntity{
		ID:       1,
		Username: "alice",
		Salt:     "s1",
		Password: digest("secret" + "s1"),
	})
}

func TestAuthenticate_Success(t *testing.T) {
	p := NewProvider(aliceStore())

	principal, err := p.Authenticate(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, int64(1), principal.ID)
	assert.Equal(t, []string{DefaultAuthority}, principal.Authorities)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	p := NewProvider(aliceStore())

	_, err := p.Authenticate(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBadCredentials)
	assert.NotErrorIs(t, err, core.ErrUserNotFound)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	p := NewProvider(aliceStore())

	for _, pw := range []string{"secret", "wrong", ""} {
		_, err := p.Authenticate(context.Background(), "mallory", pw)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUserNotFound)
		assert.NotErrorIs(t, err, core.ErrBadCredentials)
	}
}

func TestAuthenticate_Disabled(t *testing.T) {
	store := aliceStore()
	store.Put(core.UserEntity{ID: 2, Username: "bob", Salt: "x", Password: digest("pw" + "x"), IsDisabled: true})
	p := NewProvider(store)

	_, err := p.Authenticate(context.Background(), "bob", "pw")
	assert.ErrorIs(t, err, core.ErrUserDisabled)

	// wrong password on a disabled account still reads as bad credentials
	_, err = p.Authenticate(context.Background(), "bob", "nope")
	assert.ErrorIs(t, err, core.ErrBadCredentials)
}

type failingStore struct{ err error }

func (f failingStore) FindByUsername(context.Context, string) (*core.UserEntity, error) {
	return nil, f.err
}

func TestAuthenticate_LookupError(t *testing.T) {
	boom := errors.New("db down")
	p := NewProvider(failingStore{err: boom})

	_, err := p.Authenticate(context.Background(), "alice", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrUserNotFound)
}

func TestAuthenticate_CustomEncoderAndAuthorities(t *testing.T) {
	hash, err := password.HashArgon2id("secret")
	require.NoError(t, err)
	store := identity.NewMemoryStore(core.UserEntity{Username: "eve", Password: hash})

	p := NewProvider(store, WithEncoder(password.Argon2id{}), WithAuthorities("USER", "AUDITOR"))
	principal, err := p.Authenticate(context.Background(), "eve", "secret")
	require.NoError(t, err)
	assert.True(t, principal.HasAuthority("AUDITOR"))
	assert.False(t, principal.HasAuthority(DefaultAuthority))
}

func TestAuthenticate_CorruptStoredValue(t *testing.T) {
	store := identity.NewMemoryStore(core.UserEntity{Username: "eve", Password: "$argon2id$garbage"})
	p := NewProvider(store, WithEncoder(password.Argon2id{}))

	_, err := p.Authenticate(context.Background(), "eve", "secret")
	assert.ErrorIs(t, err, core.ErrBadCredentials)
}

func TestAuthenticate_DefaultEncoderVerifiesBcryptRows(t *testing.T) {
	hash, err := password.Bcrypt{Cost: bcrypt.MinCost}.Encode("secret" + "s9")
	require.NoError(t, err)
	store := identity.NewMemoryStore(
		core.UserEntity{ID: 9, Username: "bob", Salt: "s9", Password: hash},
		core.UserEntity{ID: 1, Username: "alice", Salt: "s1", Password: digest("secret" + "s1")},
	)
	p := NewProvider(store)

	principal, err := p.Authenticate(context.Background(), "bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(9), principal.ID)

	_, err = p.Authenticate(context.Background(), "alice", "secret")
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), "bob", "wrong")
	assert.ErrorIs(t, err, core.ErrBadCredentials)
}

func TestAuthenticate_UsernameIsExact(t *testing.T) {
	p := NewProvider(aliceStore())

	for _, name := range []string{" alice", "alice ", "Alice"} {
		_, err := p.Authenticate(context.Background(), name, "secret")
		assert.ErrorIs(t, err, core.ErrUserNotFound, "%q", name)
	}
}
