package vfs

import "strings"

// Separator is the path segment separator.
const Separator = "/"

// Path is a parsed filesystem path: an ordered sequence of non-empty segments
// plus a flag marking absolute vs. relative origin.
//
// Parsing normalizes the textual form: redundant separators collapse, "."
// segments are dropped, and ".." segments are preserved literally. Resolution
// semantics for ".." belong to the traversal algorithm, not the parser,
// because ".." must respect mount boundaries.
type Path struct {
	segments []string
	absolute bool
}

// ParsePath normalizes a textual path into a Path. Degenerate input ("", "/",
// "//") yields the root path.
func ParsePath(raw string) Path {
	absolute := raw == "" || strings.HasPrefix(raw, Separator)

	var segments []string
	for _, seg := range strings.Split(raw, Separator) {
		switch seg {
		case "", ".":
			// Collapsed separator or no-op segment.
		default:
			segments = append(segments, seg)
		}
	}

	return Path{segments: segments, absolute: absolute}
}

// Absolute reports whether the path originates at the namespace root.
func (p Path) Absolute() bool {
	return p.absolute
}

// Segments returns the normalized segment sequence. Callers must not mutate
// the returned slice.
func (p Path) Segments() []string {
	return p.segments
}

// Basename returns the last segment, or "" for the root or empty path.
func (p Path) Basename() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Dirname returns a Path holding all segments but the last, preserving the
// absolute flag. The dirname of the root is the root; the dirname of a
// single-segment relative path is the empty relative path (the caller's
// working directory).
func (p Path) Dirname() Path {
	if len(p.segments) == 0 {
		return Path{absolute: p.absolute}
	}
	return Path{
		segments: p.segments[:len(p.segments)-1],
		absolute: p.absolute,
	}
}

// Full returns the canonical string form: segments joined by the separator,
// with a leading separator for absolute paths. The empty relative path
// renders as "." and the root as "/".
func (p Path) Full() string {
	joined := strings.Join(p.segments, Separator)
	if p.absolute {
		return Separator + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return p.Full()
}
