package authgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/authmodule/accesslog"
	"github.com/PaulFidika/authmodule/adapters/ginutil"
	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/credential"
	"github.com/PaulFidika/authmodule/identity"
	jwtkit "github.com/PaulFidika/authmodule/jwt"
	memorylimiter "github.com/PaulFidika/authmodule/ratelimit/memory"
)

type published struct {
	v                    any
	exchange, routingKey string
}

type recordingPublisher struct{ sent []published }

func (p *recordingPublisher) SendJSON(_ context.Context, v any, exchange, routingKey string) error {
	p.sent = append(p.sent, published{v, exchange, routingKey})
	return nil
}
func (p *recordingPublisher) Close() error { return nil }

type inlineExecutor struct{}

func (inlineExecutor) Submit(ctx context.Context, _ string, fn func(context.Context) error) bool {
	_ = fn(ctx)
	return true
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func provider() *credential.Provider {
	logger, _ := logtest.NewNullLogger()
	store := identity.NewMemoryStore(
		core.UserEntity{ID: 1, Username: "alice", Salt: "s1", Password: sha256Hex("secret" + "s1")},
		core.UserEntity{ID: 2, Username: "mallory", Salt: "s2", Password: sha256Hex("pw" + "s2"), IsDisabled: true},
	)
	return credential.NewProvider(store, credential.WithLogger(logger))
}

func emitter(pub *recordingPublisher, ext accesslog.Extender) *accesslog.Emitter {
	logger, _ := logtest.NewNullLogger()
	return accesslog.New(accesslog.Config{Publisher: pub, Executor: inlineExecutor{}, Extender: ext, Logger: logger})
}

func loginRouter(auth Authenticator, success AuthSuccessHandler, rl *memorylimiter.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	var limiter ginutil.RateLimiter
	if rl != nil {
		limiter = rl
	}
	r.POST("/auth/login", Trace(), HandleLoginPOST(auth, success, limiter))
	return r
}

func postLogin(r http.Handler, username, password string, header ...string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.2.3:4567"
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out["error"]
}

func TestLogin_SuccessPublishesOneAccessLog(t *testing.T) {
	pub := &recordingPublisher{}
	r := loginRouter(provider(), SuccessHandler{Emitter: emitter(pub, nil)}, nil)

	w := postLogin(r, "alice", "secret")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	require.Len(t, pub.sent, 1)
	rec := pub.sent[0].v.(core.AccessLog)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, "10.1.2.3", rec.IPAddress)
	assert.Equal(t, w.Header().Get("X-Trace-ID"), rec.TraceID)
	assert.Equal(t, "auth.access-log.exchange", pub.sent[0].exchange)
}

func TestLogin_TokenExtender(t *testing.T) {
	signer, err := jwtkit.NewRSASigner(2048, "k1")
	require.NoError(t, err)
	iss := jwtkit.NewIssuer(jwtkit.NewStaticKeySource(signer), "authmodule", time.Hour)

	pub := &recordingPublisher{}
	r := loginRouter(provider(), SuccessHandler{Emitter: emitter(pub, TokenExtender{Issuer: iss})}, nil)

	w := postLogin(r, "alice", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, pub.sent, 1)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)

	p, err := iss.Parse(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.HasAuthority(credential.DefaultAuthority))
}

func TestLogin_Failures(t *testing.T) {
	cases := []struct {
		name, username, password string
		status                   int
		code                     string
	}{
		{"wrong password", "alice", "nope", http.StatusUnauthorized, "invalid_credentials"},
		{"unknown user", "bob", "secret", http.StatusUnauthorized, "invalid_credentials"},
		{"disabled", "mallory", "pw", http.StatusForbidden, "user_disabled"},
		{"missing password", "alice", "", http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			r := loginRouter(provider(), SuccessHandler{Emitter: emitter(pub, nil)}, nil)

			w := postLogin(r, tc.username, tc.password)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
			assert.Empty(t, pub.sent)
		})
	}
}

type brokenAuth struct{}

func (brokenAuth) Authenticate(context.Context, string, string) (*core.Principal, error) {
	return nil, errors.New("database gone")
}

func TestLogin_LookupErrorIs500(t *testing.T) {
	r := loginRouter(brokenAuth{}, nil, nil)
	w := postLogin(r, "alice", "secret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	rl := memorylimiter.New(map[string]memorylimiter.Limit{"default": {Limit: 2, Window: time.Minute}})
	r := loginRouter(provider(), nil, rl)

	assert.Equal(t, http.StatusUnauthorized, postLogin(r, "alice", "x").Code)
	assert.Equal(t, http.StatusUnauthorized, postLogin(r, "alice", "y").Code)
	assert.Equal(t, http.StatusTooManyRequests, postLogin(r, "alice", "secret").Code)
}

func TestLogin_ForwardedForIgnoredWithoutTrustedProxy(t *testing.T) {
	pub := &recordingPublisher{}
	r := loginRouter(provider(), SuccessHandler{Emitter: emitter(pub, nil)}, nil)

	w := postLogin(r, "alice", "secret", "X-Forwarded-For", "6.6.6.6")
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "10.1.2.3", pub.sent[0].v.(core.AccessLog).IPAddress)
}

func TestLogin_ForwardedForCannotDodgeIPLimit(t *testing.T) {
	rl := memorylimiter.New(map[string]memorylimiter.Limit{
		ginutil.RLLoginIP: {Limit: 1, Window: time.Minute},
	})
	r := loginRouter(provider(), SuccessHandler{Emitter: emitter(&recordingPublisher{}, nil)}, rl)

	assert.Equal(t, http.StatusUnauthorized, postLogin(r, "alice", "wrong", "X-Forwarded-For", "1.1.1.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, postLogin(r, "alice", "wrong", "X-Forwarded-For", "2.2.2.2").Code)
}
