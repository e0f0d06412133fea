package authgin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/PaulFidika/authmodule/accesslog"
	"github.com/PaulFidika/authmodule/core"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, p *core.Principal) (string, time.Time, error)
}

// TokenExtender answers a successful login with a bearer session token.
type TokenExtender struct {
	Issuer TokenIssuer
}

var _ accesslog.Extender = TokenExtender{}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        *core.Principal `json:"user"`
}

func (t TokenExtender) OnAuthenticationSuccess(ctx context.Context, info accesslog.RequestInfo, p *core.Principal) error {
	if info.Writer == nil {
		return errors.New("authgin: token extender needs a response writer")
	}
	tok, exp, err := t.Issuer.Issue(ctx, p)
	if err != nil {
		return err
	}
	info.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	info.Writer.Header().Set("Cache-Control", "no-store")
	info.Writer.WriteHeader(http.StatusOK)
	return json.NewEncoder(info.Writer).Encode(tokenResponse{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		User:        p,
	})
}
