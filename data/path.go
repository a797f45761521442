package data

import "strings"

// Path is an immutable sequence of non-empty path segments together with a
// flag that marks whether the path is anchored at the global root. A rooted
// path with zero segments denotes the root directory itself.
type Path struct {
	rooted   bool
	segments []string
}

// ParsePath builds a Path from a raw string. The result is rooted when the
// string starts with a slash. Empty segments (doubled or trailing slashes)
// are discarded.
func ParsePath(raw string) Path {
	return Path{
		rooted:   strings.HasPrefix(raw, "/"),
		segments: splitSegments(raw),
	}
}

// JoinPath resolves a relative string against a base working directory.
// The base's segments come first, followed by the segments of rel.
// The result inherits the rootedness of the base.
func JoinPath(base Path, rel string) Path {
	segments := make([]string, 0, len(base.segments)+4)
	segments = append(segments, base.segments...)
	segments = append(segments, splitSegments(rel)...)

	return Path{
		rooted:   base.rooted,
		segments: segments,
	}
}

// NewPath builds a Path directly from segments. Empty segments are discarded
// so the Path invariants hold regardless of the input.
func NewPath(rooted bool, segments ...string) Path {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}

	return Path{
		rooted:   rooted,
		segments: kept,
	}
}

func splitSegments(raw string) []string {
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Rooted reports whether the path is anchored at the global root.
func (p Path) Rooted() bool {
	return p.rooted
}

// IsRoot reports whether the path denotes the root directory itself.
func (p Path) IsRoot() bool {
	return p.rooted && len(p.segments) == 0
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// Segment returns the segment at index i.
func (p Path) Segment(i int) string {
	return p.segments[i]
}

// Segments returns a copy of the segment slice.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Equal reports whether two paths have the same rootedness and segments.
func (p Path) Equal(o Path) bool {
	if p.rooted != o.rooted || len(p.segments) != len(o.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// SubPath returns the suffix after dropping the first k segments. The result
// preserves the rootedness of the receiver, so the sub-path of a rooted path
// is itself rooted. Dropping every segment yields the (possibly rooted)
// empty path.
func (p Path) SubPath(k int) Path {
	if k >= len(p.segments) {
		return Path{rooted: p.rooted}
	}

	sub := make([]string, len(p.segments)-k)
	copy(sub, p.segments[k:])

	return Path{
		rooted:   p.rooted,
		segments: sub,
	}
}

// String renders the canonical form: segments joined by slashes, with a
// leading slash when rooted. The rooted empty path renders as "/".
func (p Path) String() string {
	joined := strings.Join(p.segments, "/")
	if p.rooted {
		return "/" + joined
	}
	return joined
}
