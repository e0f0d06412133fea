package oplog

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

type deleteFileRequest struct {
	Path  string
	Force bool
}

type fileID string

func (f fileID) String() string { return "file:" + string(f) }

func TestRender_JoinsArguments(t *testing.T) {
	r := NewParamRenderer()
	assert.Equal(t, "[a,1,true]", r.Render([]any{"a", 1, true}))
	assert.Equal(t, "[]", r.Render(nil))
}

func TestRender_OmitsNilArguments(t *testing.T) {
	var req *deleteFileRequest
	var err error
	r := NewParamRenderer()
	assert.Equal(t, "[a,b]", r.Render([]any{nil, "a", req, err, "b"}))
}

func TestRender_SkipsPlumbing(t *testing.T) {
	r := NewParamRenderer()
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	got := r.Render([]any{context.Background(), req, w, "x"})
	assert.Equal(t, "[x]", got)
}

func TestRender_ExtraExclusions(t *testing.T) {
	secret := func(a any) bool { s, ok := a.(string); return ok && strings.HasPrefix(s, "pw:") }
	r := NewParamRenderer(secret)
	assert.Equal(t, "[alice]", r.Render([]any{"alice", "pw:hunter2"}))
}

func TestRender_DescribesValues(t *testing.T) {
	r := NewParamRenderer()
	got := r.Render([]any{
		deleteFileRequest{Path: "/tmp/a", Force: true},
		&deleteFileRequest{Path: "/tmp/b"},
		fileID("42"),
		errors.New("boom"),
	})
	assert.Equal(t, "[deleteFileRequest{Path:/tmp/a Force:true},deleteFileRequest{Path:/tmp/b Force:false},file:42,boom]", got)
}

func TestRender_Truncates(t *testing.T) {
	r := NewParamRenderer()
	got := r.Render([]any{strings.Repeat("a", 2000), "tail"})

	assert.Len(t, got, MaxParamLength+len(TruncationMarker)+1)
	assert.True(t, strings.HasPrefix(got, "[aaa"))
	assert.True(t, strings.HasSuffix(got, "a...]"))
	assert.NotContains(t, got, "tail")
}

func TestRender_ExactlyAtLimitIsKept(t *testing.T) {
	r := NewParamRenderer()
	arg := strings.Repeat("b", MaxParamLength-1)
	got := r.Render([]any{arg})
	assert.Equal(t, "["+arg+"]", got)
}

func TestRender_TruncatesOnRuneBoundary(t *testing.T) {
	r := NewParamRenderer()
	got := r.Render([]any{strings.Repeat("文", 400)})

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "文...]"))
	// "[" plus 316 three-byte runes is 949 bytes; the 317th would cross 950.
	assert.Equal(t, 316, strings.Count(got, "文"))
	assert.LessOrEqual(t, len(got), MaxParamLength+len(TruncationMarker)+1)
}
