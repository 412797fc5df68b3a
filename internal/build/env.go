package build

import (
	"os"
	"strings"
)

// EnvVars holds the build environment used to expand user supplied values.
type EnvVars map[string]string

// EnvFromOS captures the current process environment.
func EnvFromOS() EnvVars {
	env := EnvVars{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Expand replaces $VAR and ${VAR} references to defined variables. Unknown
// variables and malformed references are copied verbatim.
func (e EnvVars) Expand(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}
		name, n := varRef(s[i+1:])
		if v, ok := e[name]; ok && n > 0 {
			b.WriteString(v)
			i += 1 + n
			continue
		}
		b.WriteByte('$')
		i++
	}
	return b.String()
}

// varRef parses a variable name or a braced name at the start of s and
// returns it with the number of bytes it spans, or 0 if there is none.
func varRef(s string) (string, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 || nameLen(s[1:end]) != end-1 || end == 1 {
			return "", 0
		}
		return s[1:end], end + 1
	}
	n := nameLen(s)
	return s[:n], n
}

// nameLen returns the length of the identifier prefix of s.
func nameLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return i
		}
	}
	return len(s)
}

// With returns a copy of e with the given key set.
func (e EnvVars) With(key, value string) EnvVars {
	out := make(EnvVars, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[key] = value
	return out
}
