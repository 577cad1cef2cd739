package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		segments []string
		absolute bool
	}{
		{name: "empty is root", raw: "", segments: nil, absolute: true},
		{name: "root", raw: "/", segments: nil, absolute: true},
		{name: "double separator root", raw: "//", segments: nil, absolute: true},
		{name: "absolute", raw: "/a/b/c", segments: []string{"a", "b", "c"}, absolute: true},
		{name: "relative", raw: "a/b", segments: []string{"a", "b"}, absolute: false},
		{name: "redundant separators collapse", raw: "/a//b///c", segments: []string{"a", "b", "c"}, absolute: true},
		{name: "dot segments dropped", raw: "/a/./b/.", segments: []string{"a", "b"}, absolute: true},
		{name: "dotdot preserved", raw: "/a/../b", segments: []string{"a", "..", "b"}, absolute: true},
		{name: "trailing separator", raw: "/a/b/", segments: []string{"a", "b"}, absolute: true},
		{name: "lone dot", raw: ".", segments: nil, absolute: false},
		{name: "lone dotdot", raw: "..", segments: []string{".."}, absolute: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePath(tt.raw)
			assert.Equal(t, tt.segments, p.Segments())
			assert.Equal(t, tt.absolute, p.Absolute())
		})
	}
}

func TestPathBasenameDirname(t *testing.T) {
	t.Run("regular path", func(t *testing.T) {
		p := ParsePath("/a/b/c")
		assert.Equal(t, "c", p.Basename())
		assert.Equal(t, "/a/b", p.Dirname().Full())
	})

	t.Run("root has no basename", func(t *testing.T) {
		p := ParsePath("/")
		assert.Equal(t, "", p.Basename())
		assert.Equal(t, "/", p.Dirname().Full())
	})

	t.Run("single relative segment", func(t *testing.T) {
		p := ParsePath("file")
		assert.Equal(t, "file", p.Basename())
		assert.Equal(t, ".", p.Dirname().Full())
		assert.False(t, p.Dirname().Absolute())
	})
}

func TestPathFull(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "/", want: "/"},
		{raw: "", want: "/"},
		{raw: "/a//b/./c/", want: "/a/b/c"},
		{raw: "a/./b", want: "a/b"},
		{raw: ".", want: "."},
		{raw: "/..", want: "/.."},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePath(tt.raw).Full())
			assert.Equal(t, tt.want, ParsePath(tt.raw).String())
		})
	}
}
