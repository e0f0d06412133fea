// Package credential verifies username/password pairs against stored,
// salted digests and produces the request principal.
package credential

import (
	"context"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/identity"
	"github.com/PaulFidika/authmodule/password"
)

// DefaultAuthority is granted to every authenticated principal.
const DefaultAuthority = "ADMIN"

// Provider authenticates users loaded from a UserStore.
type Provider struct {
	users       identity.UserStore
	encoder     password.Encoder
	authorities []string
	log         logrus.FieldLogger
}

type Option func(*Provider)

// WithEncoder replaces the default SHA-256 digest encoder.
func WithEncoder(e password.Encoder) Option {
	return func(p *Provider) {
		if e != nil {
			p.encoder = e
		}
	}
}

// WithAuthorities replaces the authorities granted on success.
func WithAuthorities(a ...string) Option {
	return func(p *Provider) {
		if len(a) > 0 {
			p.authorities = append([]string(nil), a...)
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProvider(users identity.UserStore, opts ...Option) *Provider {
	enc, _ := password.NewEncoder(password.AlgSHA256)
	p := &Provider{
		users:       users,
		encoder:     enc,
		authorities: []string{DefaultAuthority},
		log:         logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Authenticate loads the user and compares digest(password ++ salt) with the
// stored digest. Failures wrap core.ErrUserNotFound, core.ErrUserDisabled or
// core.ErrBadCredentials. The username is used as given.
func (p *Provider) Authenticate(ctx context.Context, username, raw string) (*core.Principal, error) {
	errb := oops.In("credential").With("username", username)

	user, err := p.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, errb.Code("AUTH_LOOKUP_FAILED").Wrapf(err, "load user")
	}
	if user == nil {
		return nil, errb.Code("AUTH_USER_NOT_FOUND").Wrapf(core.ErrUserNotFound, "user '%s' not found", username)
	}

	ok, err := p.encoder.Matches(raw+user.Salt, user.Password)
	if err != nil {
		// An unparsable stored value is treated as a mismatch for the caller
		// but logged, since it means the row itself is broken.
		p.log.WithError(err).WithField("user_id", user.ID).Warn("stored password could not be parsed")
		ok = false
	}
	if !ok {
		return nil, errb.Code("AUTH_BAD_CREDENTIALS").Wrap(core.ErrBadCredentials)
	}
	if user.IsDisabled {
		return nil, errb.Code("AUTH_USER_DISABLED").Wrap(core.ErrUserDisabled)
	}

	return &core.Principal{
		ID:          user.ID,
		Username:    user.Username,
		Authorities: append([]string(nil), p.authorities...),
	}, nil
}
