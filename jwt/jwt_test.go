package jwtkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/authmodule/core"
)

func testKeys(t *testing.T) StaticKeySource {
	t.Helper()
	s, err := NewRSASigner(2048, "test-key")
	require.NoError(t, err)
	return NewStaticKeySource(s)
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer(testKeys(t), "authmodule", time.Hour)

	tok, exp, err := iss.Issue(context.Background(), &core.Principal{ID: 42, Username: "alice", Authorities: []string{"ADMIN"}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	p, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, &core.Principal{ID: 42, Username: "alice", Authorities: []string{"ADMIN"}}, p)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	iss := NewIssuer(testKeys(t), "authmodule", time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := iss.Issue(context.Background(), &core.Principal{ID: 1, Username: "a"})
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Parse(tok)
	assert.Error(t, err)
}

func TestIssuer_RejectsForeignKey(t *testing.T) {
	tok, _, err := NewIssuer(testKeys(t), "authmodule", time.Hour).Issue(context.Background(), &core.Principal{ID: 1})
	require.NoError(t, err)

	other := testKeys(t)
	_, err = NewIssuer(other, "authmodule", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestServeJWKS_ETag(t *testing.T) {
	ks := KeySet(testKeys(t))
	require.Len(t, ks.Keys, 1)
	assert.Equal(t, "test-key", ks.Keys[0].Kid)

	w := httptest.NewRecorder()
	ServeJWKS(w, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil), ks)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	r := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	r.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	ServeJWKS(w, r, ks)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestServeJWKS_ConditionalAndHead(t *testing.T) {
	ks := KeySet(testKeys(t))
	w := httptest.NewRecorder()
	ServeJWKS(w, httptest.NewRequest(http.MethodGet, "/", nil), ks)
	etag := w.Header().Get("ETag")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("If-None-Match", `"stale", W/`+etag)
	w = httptest.NewRecorder()
	ServeJWKS(w, r, ks)
	assert.Equal(t, http.StatusNotModified, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("If-None-Match", `"stale"`)
	w = httptest.NewRecorder()
	ServeJWKS(w, r, ks)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	ServeJWKS(w, httptest.NewRequest(http.MethodHead, "/", nil), ks)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Equal(t, etag, w.Header().Get("ETag"))
}

func TestPublicJWK_Exponent(t *testing.T) {
	k := KeySet(testKeys(t)).Keys[0]
	assert.Equal(t, "AQAB", k.E)
	assert.Equal(t, "RS256", k.Alg)
}

func TestLoadKeySource_GeneratesAndReuses(t *testing.T) {
	t.Setenv("ACTIVE_KEY_ID", "")
	t.Setenv("ACTIVE_PRIVATE_KEY_PEM", "")
	t.Setenv("ENV", "")
	t.Setenv("APP_ENV", "")
	dir := t.TempDir()

	first, err := LoadKeySource(dir, "dev-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", first.ActiveSigner().KID())

	second, err := LoadKeySource(dir, "ignored", nil)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", second.ActiveSigner().KID())
}

func TestLoadKeySource_ProductionRefusesGeneration(t *testing.T) {
	t.Setenv("ACTIVE_KEY_ID", "")
	t.Setenv("ACTIVE_PRIVATE_KEY_PEM", "")
	t.Setenv("ENV", "production")
	_, err := LoadKeySource(t.TempDir(), "", nil)
	assert.Error(t, err)
}
