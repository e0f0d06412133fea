package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/authmodule/jwt"
)

// JWKSHandler serves the public keys session tokens are signed with.
func JWKSHandler(keys jwtkit.KeySource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtkit.ServeJWKS(w, r, jwtkit.KeySet(keys))
	})
}
