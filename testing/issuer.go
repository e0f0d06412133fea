// Package authtest provides fakes for exercising code built on authmodule
// without a broker, a database or a remote audit service.
//
// Example usage:
//
//	issuer := authtest.NewTestIssuer()
//	defer issuer.Close()
//
//	token := issuer.CreateToken(&core.Principal{ID: 1, Username: "alice"})
package authtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/PaulFidika/authmodule/core"
	jwtkit "github.com/PaulFidika/authmodule/jwt"
)

// TestIssuer signs session tokens and serves the matching JWKS at
// /.well-known/jwks.json. Call Close() when done.
type TestIssuer struct {
	*jwtkit.Issuer
	server *httptest.Server
	keys   jwtkit.StaticKeySource
}

func NewTestIssuer() *TestIssuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	keys := jwtkit.NewStaticKeySource(signer)
	ti := &TestIssuer{
		Issuer: jwtkit.NewIssuer(keys, "authtest", time.Hour),
		keys:   keys,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		jwtkit.ServeJWKS(w, r, jwtkit.KeySet(ti.keys))
	})
	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the base URL of the JWKS server.
func (ti *TestIssuer) URL() string { return ti.server.URL }

// Keys returns the signing keys.
func (ti *TestIssuer) Keys() jwtkit.KeySource { return ti.keys }

func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

// CreateToken signs a session token for p.
func (ti *TestIssuer) CreateToken(p *core.Principal) string {
	tok, _, err := ti.Issue(context.Background(), p)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return tok
}
