// Package nodepath converts OS-style file paths and Wiretap display paths to
// a canonical forward-slash form. Everything here is pure string handling: no
// function touches the filesystem or a server.
package nodepath

import (
	"strings"
)

// MountMap maps a root prefix to a substitute root. Keys are either a drive
// letter with its colon ("C:") or a two-segment UNIX mount point
// ("/mnt/share"); values are pseudo-UNC roots ("//server/share") or other
// mount points.
type MountMap map[string]string

func (m MountMap) lookup(key string) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	// Drive keys are matched regardless of case.
	if isDrive(key) {
		for k, v := range m {
			if isDrive(k) && strings.EqualFold(k, key) {
				return v, true
			}
		}
	}
	return "", false
}

// Join concatenates path parts with forward slashes. A part that starts with
// a slash discards everything before it. Escaped spaces are unescaped and
// backslashes become forward slashes in the result.
func Join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, "/"):
			b.Reset()
			b.WriteString(p)
		case b.Len() == 0 || strings.HasSuffix(b.String(), "/"):
			b.WriteString(p)
		default:
			b.WriteByte('/')
			b.WriteString(p)
		}
	}
	return unescape(b.String())
}

// Segment splits a path on both separators and drops empty and "."
// segments. A ".." removes the segment before it; leading ".." segments of
// a relative path are kept.
func Segment(p string) []string {
	p = unescape(strings.TrimSpace(p))
	absolute := strings.HasPrefix(p, "/")

	segs := make([]string, 0, strings.Count(p, "/")+1)
	for _, s := range strings.Split(p, "/") {
		switch s {
		case "", ".":
			continue
		case "..":
			n := len(segs)
			switch {
			case n == 1 && isDrive(segs[0]):
				// Nothing above a drive root.
			case n > 0 && segs[n-1] != "..":
				segs = segs[:n-1]
			case !absolute:
				segs = append(segs, s)
			}
		default:
			segs = append(segs, s)
		}
	}
	return segs
}

// Normalize converts p to forward-slash form and applies at most one mount
// substitution:
//
//   - "C:/dir" keeps an uppercase drive segment unless mounts maps it. A
//     missing separator after the drive ("C:TEMP") is repaired.
//   - "/a/b/rest" looks up "/a/b" in mounts. A single-segment path keeps its
//     leading slash.
//   - "//server/share" is rejoined under "//". Only slashes yield "/".
//
// Other inputs are returned as their joined segments. Normalize is
// idempotent for a fixed mount map.
func Normalize(p string, mounts MountMap) string {
	fpath := Join(strings.TrimSpace(p))
	if fpath == "" {
		return ""
	}

	absolute := strings.HasPrefix(fpath, "/")
	if !absolute && len(fpath) > 2 && isDrive(fpath[:2]) && fpath[2] != '/' {
		// "C:TEMP" becomes "C:/TEMP".
		fpath = fpath[:2] + "/" + fpath[2:]
	}
	segs := Segment(fpath)

	// Roots are classified after dot segments are gone, so "x/../C:foo" is
	// a drive path just like its output.
	if !absolute && len(segs) > 0 && len(segs[0]) > 2 && isDrive(segs[0][:2]) {
		segs = Segment(Join(append([]string{segs[0][:2], segs[0][2:]}, segs[1:]...)...))
	}

	switch {
	case !absolute && len(segs) > 0 && isDrive(segs[0]):
		drive := strings.ToUpper(segs[0])
		if sub, ok := mounts.lookup(drive); ok {
			segs[0] = sub
		} else {
			segs[0] = drive
		}
		return Join(segs...)

	case strings.HasPrefix(fpath, "//"):
		if len(segs) == 0 {
			return "/"
		}
		return Join(append([]string{"//"}, segs...)...)

	case absolute:
		switch len(segs) {
		case 0:
			return "/"
		case 1:
			return "/" + segs[0]
		}
		mount := "/" + segs[0] + "/" + segs[1]
		if sub, ok := mounts.lookup(mount); ok {
			mount = sub
		}
		return Join(append([]string{mount}, segs[2:]...)...)
	}

	return Join(segs...)
}

// Segments returns the non-empty slash-separated segments of a display
// path or node ID.
func Segments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// SplitNodePath splits "host:Product/a/b" into the hostname and the node ID
// "/a/b". A path without a slash addresses the host's root node.
func SplitNodePath(nodePath string) (hostname, nodeID string) {
	hostname, nodeID, _ = strings.Cut(nodePath, "/")
	return hostname, "/" + nodeID
}

func unescape(p string) string {
	return strings.ReplaceAll(strings.ReplaceAll(p, `\ `, " "), `\`, "/")
}

func isDrive(s string) bool {
	if len(s) != 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}
