package shred

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"shred-sage/internal/fsops"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: KindErasure, Op: "erase", Path: "/a", Msg: "open failed", Err: errors.New("boom")}
	assert.Equal(t, "erase /a: open failed: boom", err.Error())

	bare := &Error{Op: "remove"}
	assert.Equal(t, "remove", bare.Error())
}

func TestErrorIsMatchesKind(t *testing.T) {
	nf := &Error{Kind: KindNotFound, Op: "rotate", Path: "/x"}
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.NotErrorIs(t, nf, ErrAccessDenied)

	denied := fmt.Errorf("outer: %w", &Error{Kind: KindAccessDenied, Op: "erase"})
	assert.ErrorIs(t, denied, ErrAccessDenied)

	kind, ok := KindOf(denied)
	assert.True(t, ok)
	assert.Equal(t, KindAccessDenied, kind)
	assert.Equal(t, "erase", OpOf(denied))
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(fmt.Errorf("%w: /p", ErrNotFound))
	assert.False(t, ok)
	assert.Equal(t, "", OpOf(errors.New("x")))
}

func TestWrapClassifies(t *testing.T) {
	cases := map[string]struct {
		err  error
		want Kind
	}{
		"not exist":  {fs.ErrNotExist, KindNotFound},
		"permission": {fs.ErrPermission, KindAccessDenied},
		"locked":     {fsops.ErrLocked, KindAccessDenied},
		"other":      {errors.New("disk on fire"), KindErasure},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			kind, ok := KindOf(wrap("erase", "/p", "", tc.err))
			assert.True(t, ok)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestWrapPassesThroughExisting(t *testing.T) {
	inner := &Error{Kind: KindNotFound, Op: "rotate", Path: "/a"}
	got := wrap("erase", "/b", "outer", inner)
	assert.Same(t, inner, got)
	assert.Nil(t, wrap("erase", "/b", "", nil))
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "erasure", KindErasure.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "access_denied", KindAccessDenied.String())
}
