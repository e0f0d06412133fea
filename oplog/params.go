package oplog

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	// MaxParamLength caps the rendered parameter text, opening bracket included.
	MaxParamLength = 950
	// TruncationMarker is appended when the text was cut.
	TruncationMarker = "..."
)

// ExcludeFunc reports whether an argument should be left out of the
// rendered parameter string.
type ExcludeFunc func(arg any) bool

// ParamRenderer turns an argument list into the short, bracketed text stored
// on an operate log.
type ParamRenderer struct {
	maxLen   int
	excludes []ExcludeFunc
}

// NewParamRenderer returns a renderer that skips request plumbing
// (contexts, HTTP request/response values, loggers) plus anything matched
// by extra.
func NewParamRenderer(extra ...ExcludeFunc) *ParamRenderer {
	ex := []ExcludeFunc{isPlumbing}
	ex = append(ex, extra...)
	return &ParamRenderer{maxLen: MaxParamLength, excludes: ex}
}

func isPlumbing(arg any) bool {
	switch arg.(type) {
	case context.Context, *http.Request, http.ResponseWriter, logrus.FieldLogger:
		return true
	}
	return false
}

// Render joins the non-nil, non-excluded arguments with "," inside square
// brackets. When the text, opening bracket included, grows past
// MaxParamLength bytes it is cut at the last rune boundary within the limit
// and TruncationMarker is appended before the closing bracket.
func (r *ParamRenderer) Render(args []any) string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for _, a := range args {
		if isNil(a) || r.excluded(a) {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(describe(a))
		if sb.Len() > r.maxLen {
			break
		}
	}

	out := sb.String()
	if len(out) > r.maxLen {
		n := r.maxLen
		for n > 0 && !utf8.RuneStart(out[n]) {
			n--
		}
		out = out[:n] + TruncationMarker
	}
	return out + "]"
}

func (r *ParamRenderer) excluded(a any) bool {
	for _, fn := range r.excludes {
		if fn(a) {
			return true
		}
	}
	return false
}

func isNil(a any) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// describe renders a single argument. Stringers and errors speak for
// themselves; structs are shown as SimpleName{Field:value ...}; everything
// else uses its default format.
func describe(a any) string {
	switch v := a.(type) {
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	case string:
		return v
	}
	rv := reflect.ValueOf(a)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return simpleName(rv.Type()) + fmt.Sprintf("%+v", rv.Interface())
	}
	return fmt.Sprintf("%v", a)
}

func simpleName(t reflect.Type) string {
	if n := t.Name(); n != "" {
		return n
	}
	s := t.String()
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
