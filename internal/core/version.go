package core

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var Version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		Version = "devel"
		return
	}

	// Tagged releases carry a real module version; pseudo-versions are
	// local builds and fall through to VCS info below.
	if v := info.Main.Version; v != "" && v != "(devel)" && !isPseudoVersion(v) {
		Version = v
		return
	}

	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" {
		Version = "devel"
		return
	}

	short := revision
	if len(short) > 7 {
		short = short[:7]
	}
	Version = fmt.Sprintf("devel-%s", short)
	if dirty {
		Version += "-dirty"
	}
}

// FormatVersion strips the "v" prefix from tagged releases; devel versions
// pass through as-is.
func FormatVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isPseudoVersion reports whether v looks like a Go module pseudo-version,
// i.e. ends with a 12-character hex commit hash.
func isPseudoVersion(v string) bool {
	if i := strings.Index(v, "+"); i >= 0 {
		v = v[:i]
	}
	i := strings.LastIndex(v, "-")
	if i < 0 {
		return false
	}
	hash := v[i+1:]
	if len(hash) != 12 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
