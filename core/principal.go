package core

import "context"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Authorities []string `json:"authorities,omitempty"`
}

// HasAuthority reports whether the principal was granted authority a.
func (p *Principal) HasAuthority(a string) bool {
	if p == nil {
		return false
	}
	for _, v := range p.Authorities {
		if v == a {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal attaches p to ctx for the remainder of the request.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reads the request principal from ctx.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
